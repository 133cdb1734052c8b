package api

import (
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/cipherbet/engine/log"
	"github.com/cipherbet/engine/types"
)

// httpWriteJSON helper function allows to write a JSON response.
func httpWriteJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	jdata, err := json.Marshal(data)
	if err != nil {
		ErrMarshalingServerJSONFailed.WithErr(err).Write(w)
		return
	}
	n, err := w.Write(jdata)
	if err != nil {
		log.Warnw("failed to write http response", "error", err)
	}
	if _, err := w.Write([]byte("\n")); err != nil {
		log.Warnw("failed to write on response", "error", err)
	}
	log.Debugw("api response", "bytes", n, "data", strings.ReplaceAll(string(jdata), "\"", ""))
}

// httpWriteOK helper function allows to write an OK response.
func httpWriteOK(w http.ResponseWriter) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("\n")); err != nil {
		log.Warnw("failed to write on response", "error", err)
	}
}

// urlMarketID parses the market identifier URL parameter.
func urlMarketID(r *http.Request) (uint64, error) {
	return strconv.ParseUint(chi.URLParam(r, MarketURLParam), 10, 64)
}

// urlHexBytes parses a hex encoded URL parameter, with or without 0x prefix.
func urlHexBytes(r *http.Request, param string) (types.HexBytes, error) {
	raw := strings.TrimPrefix(chi.URLParam(r, param), "0x")
	return hex.DecodeString(raw)
}
