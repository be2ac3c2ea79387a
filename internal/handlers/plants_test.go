package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"smart_irrigation/internal/service"
)

func TestPlantHandlers_GetSetClear(t *testing.T) {
	auth := &mockAuth{parseID: 3}
	plants := &mockPlants{info: service.PlantInfo{
		Name:                  "Tomato",
		BaseMoistureThreshold: 400,
		OptimalTemperature:    24,
		StageModifiers:        map[string]float64{"flowering": 1.2},
	}}
	s := &service.Service{
		Authorization: auth,
		Plants:        plants,
	}
	r := newTestRouter(s)

	// GET profile
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/plants/tomato", nil)
	for k, vv := range authHeader("valid") {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("get status=%d, body=%s", w.Code, w.Body.String())
	}
	var info service.PlantInfo
	if err := json.Unmarshal(w.Body.Bytes(), &info); err != nil {
		t.Fatalf("unmarshal info: %v", err)
	}
	if info.Name != "Tomato" || info.BaseMoistureThreshold != 400 {
		t.Fatalf("unexpected info: %+v", info)
	}
	if plants.lastGetType != "tomato" {
		t.Fatalf("expected lookup for tomato, got %q", plants.lastGetType)
	}

	// PUT thresholds → 200, override forwarded
	body := bytes.NewBufferString(`{"moisture_threshold":500,"temp_optimal":26,"humidity_optimal":50}`)
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPut, "/api/v1/plants/tomato/thresholds", body)
	req.Header.Set("Content-Type", "application/json")
	for k, vv := range authHeader("valid") {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("put status=%d, body=%s", w.Code, w.Body.String())
	}
	if plants.lastSetType != "tomato" || plants.lastOverride.MoistureThreshold != 500 {
		t.Fatalf("wrong override forwarded: type=%q override=%+v", plants.lastSetType, plants.lastOverride)
	}

	// PUT with missing fields → 400, service untouched
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPut, "/api/v1/plants/tomato/thresholds", bytes.NewBufferString(`{"moisture_threshold":500}`))
	req.Header.Set("Content-Type", "application/json")
	for k, vv := range authHeader("valid") {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for incomplete body, got %d", w.Code)
	}

	// DELETE thresholds → 200
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodDelete, "/api/v1/plants/tomato/thresholds", nil)
	for k, vv := range authHeader("valid") {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("delete status=%d, body=%s", w.Code, w.Body.String())
	}
	if plants.lastClearType != "tomato" {
		t.Fatalf("expected clear for tomato, got %q", plants.lastClearType)
	}
}

func TestPlantHandlers_UnknownSpecies400(t *testing.T) {
	auth := &mockAuth{parseID: 3}
	plants := &mockPlants{getErr: errBoom}
	s := &service.Service{
		Authorization: auth,
		Plants:        plants,
	}
	r := newTestRouter(s)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/plants/triffid", nil)
	for k, vv := range authHeader("valid") {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown species, got %d", w.Code)
	}
}
