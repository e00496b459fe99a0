package backend

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/brutella/hc/log"

	"github.com/ra1nb0w/pistream"
)

// maxSettingsBody bounds the JSON accepted by the settings endpoint.
const maxSettingsBody = 4096

func (b *Backend) postSettings(w http.ResponseWriter, r *http.Request) {
	u, err := decodeUpdate(http.MaxBytesReader(w, r.Body, maxSettingsBody))
	if err == nil {
		err = b.settings.Apply(u)
	}
	if err != nil {
		log.Info.Printf("WebService: settings from %s rejected: %v", r.RemoteAddr, err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	log.Debug.Printf("WebService: settings from %s applied", r.RemoteAddr)
	w.WriteHeader(http.StatusOK)
}

func decodeUpdate(body io.Reader) (pistream.Update, error) {
	var u pistream.Update

	var raw json.RawMessage
	dec := json.NewDecoder(body)
	if err := dec.Decode(&raw); err != nil {
		return u, err
	}
	// one object per request
	if dec.More() {
		return u, errors.New("unexpected data after the settings object")
	}
	if len(raw) == 0 || raw[0] != '{' {
		return u, errors.New("settings must be a JSON object")
	}

	strict := json.NewDecoder(bytes.NewReader(raw))
	strict.DisallowUnknownFields()
	if err := strict.Decode(&u); err != nil {
		return u, err
	}
	return u, nil
}
