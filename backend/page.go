package backend

import (
	"bytes"
	htmltemplate "html/template"
	"io"
	"net/http"
	"strconv"
	"text/template"

	"github.com/brutella/hc/log"
)

// Page holds the values substituted into the page and the stylesheet.
type Page struct {
	Title      string
	Width      int
	Height     int
	Background string
	Border     string
}

var indexTemplate = htmltemplate.Must(htmltemplate.New("index").Parse(`<!DOCTYPE html>
<html>
    <head>
        <meta http-equiv="content-type" content="text/html; charset=utf-8" />
        <title>{{.Title}}</title>
        <link rel="stylesheet" href="style.css" />
    </head>
    <body>
        <script>
            /*
             * To prevent Firefox FOUC, this must be here
             * See https://bugzilla.mozilla.org/show_bug.cgi?id=1404468
             */
            let FF_FOUC_FIX;
        </script>
        <img src="stream.mjpg" width="{{.Width}}" height="{{.Height}}" />
    </body>
</html>
`))

var styleTemplate = template.Must(template.New("style").Parse(`body {
    background: {{.Background}};
}

img {
    max-width: {{.Width}}px;
    max-height: {{.Height}}px;
    width: 98%;
    height: auto;
    margin: 5px 1vw 5px 1vw;
    border: 3px solid {{.Border}};
    border-radius: 10px;
}
`))

type renderer interface {
	Execute(w io.Writer, data any) error
}

func (b *Backend) getIndex(w http.ResponseWriter, r *http.Request) {
	b.render(w, indexTemplate, "text/html")
}

func (b *Backend) getStyle(w http.ResponseWriter, r *http.Request) {
	b.render(w, styleTemplate, "text/css")
}

func (b *Backend) render(w http.ResponseWriter, t renderer, contentType string) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, b.page.Load()); err != nil {
		log.Info.Println("render:", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
