package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"plategate/internal/domain/plate"
	"plategate/internal/repository"
	"plategate/internal/service"
)

const testAPIToken = "worker-token"

// fakeStore is a minimal in-memory service.Store for routing tests.
type fakeStore struct {
	nextID  int64
	plates  map[int64]plate.AuthorizedPlate
	records []plate.PlateRecord
	history []plate.AuthorizationHistory
}

func newFakeStore() *fakeStore {
	return &fakeStore{nextID: 1, plates: make(map[int64]plate.AuthorizedPlate)}
}

func (f *fakeStore) FindActivePlate(ctx context.Context, plateNumber string) (*plate.AuthorizedPlate, error) {
	for _, rec := range f.plates {
		if rec.PlateNumber == plateNumber && rec.IsActive {
			found := rec
			return &found, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) FindPlateByNumber(ctx context.Context, plateNumber string) (*plate.AuthorizedPlate, error) {
	for _, rec := range f.plates {
		if rec.PlateNumber == plateNumber {
			found := rec
			return &found, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) GetPlate(ctx context.Context, id int64) (*plate.AuthorizedPlate, error) {
	rec, ok := f.plates[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	found := rec
	return &found, nil
}

func (f *fakeStore) ListPlates(ctx context.Context) ([]plate.AuthorizedPlate, error) {
	out := make([]plate.AuthorizedPlate, 0, len(f.plates))
	for _, rec := range f.plates {
		out = append(out, rec)
	}
	return out, nil
}

func (f *fakeStore) CreatePlate(ctx context.Context, rec *plate.AuthorizedPlate, entry *plate.AuthorizationHistory) error {
	rec.ID = f.nextID
	f.nextID++
	f.plates[rec.ID] = *rec
	f.history = append(f.history, *entry)
	return nil
}

func (f *fakeStore) UpdatePlate(ctx context.Context, rec *plate.AuthorizedPlate, entries []plate.AuthorizationHistory) error {
	if _, ok := f.plates[rec.ID]; !ok {
		return repository.ErrNotFound
	}
	f.plates[rec.ID] = *rec
	f.history = append(f.history, entries...)
	return nil
}

func (f *fakeStore) DeletePlate(ctx context.Context, id int64, entry *plate.AuthorizationHistory) error {
	if _, ok := f.plates[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.plates, id)
	f.history = append(f.history, *entry)
	return nil
}

func (f *fakeStore) AppendPlateRecord(ctx context.Context, rec *plate.PlateRecord) error {
	f.records = append(f.records, *rec)
	return nil
}

func (f *fakeStore) UpdateLastAccess(ctx context.Context, plateNumber string, at time.Time) error {
	return nil
}

func (f *fakeStore) ListPlateRecords(ctx context.Context, limit, offset int) ([]plate.PlateRecord, error) {
	return f.records, nil
}

func (f *fakeStore) ListHistory(ctx context.Context, limit, offset int) ([]plate.AuthorizationHistory, error) {
	return f.history, nil
}

type fakeCameraStore struct {
	nextID  int64
	cameras map[int64]plate.Camera
}

func newFakeCameraStore() *fakeCameraStore {
	return &fakeCameraStore{nextID: 1, cameras: make(map[int64]plate.Camera)}
}

func (f *fakeCameraStore) Get(ctx context.Context, id int64) (*plate.Camera, error) {
	cam, ok := f.cameras[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	found := cam
	return &found, nil
}

func (f *fakeCameraStore) List(ctx context.Context, activeOnly bool) ([]plate.Camera, error) {
	out := make([]plate.Camera, 0, len(f.cameras))
	for _, cam := range f.cameras {
		if activeOnly && !cam.IsActive {
			continue
		}
		out = append(out, cam)
	}
	return out, nil
}

func (f *fakeCameraStore) Create(ctx context.Context, cam *plate.Camera) error {
	cam.ID = f.nextID
	f.nextID++
	f.cameras[cam.ID] = *cam
	return nil
}

func (f *fakeCameraStore) Update(ctx context.Context, cam *plate.Camera) error {
	if _, ok := f.cameras[cam.ID]; !ok {
		return repository.ErrNotFound
	}
	f.cameras[cam.ID] = *cam
	return nil
}

func (f *fakeCameraStore) Delete(ctx context.Context, id int64) error {
	if _, ok := f.cameras[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.cameras, id)
	return nil
}

func (f *fakeCameraStore) TouchLastConnected(ctx context.Context, id int64, at time.Time) error {
	return nil
}

func newTestRouter(t *testing.T, store *fakeStore) (*gin.Engine, *service.AuthService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hash, err := bcrypt.GenerateFromPassword([]byte("admin-pass"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	log := zerolog.Nop()
	auth := service.NewAuthService("test-secret", time.Hour, "admin", string(hash))
	handler := NewHandler(
		service.NewDecisionService(store, nil, log),
		service.NewRegistryService(store, log),
		service.NewCameraService(newFakeCameraStore(), log),
		auth,
		testAPIToken,
		log,
	)

	router := gin.New()
	handler.Register(router)
	return router, auth
}

func adminToken(t *testing.T, auth *service.AuthService) string {
	t.Helper()
	token, err := auth.Login("admin", "admin-pass")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	return token
}

func doJSON(router *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestSubmitDetectionRequiresAPIToken(t *testing.T) {
	router, _ := newTestRouter(t, newFakeStore())

	body := map[string]interface{}{"plate_number": "34ABC123", "confidence": 90.0}
	payload, _ := json.Marshal(body)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/detections", bytes.NewReader(payload))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("missing token: status = %d, want 401", w.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/detections", bytes.NewReader(payload))
	req.Header.Set("X-API-Token", "wrong")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token: status = %d, want 401", w.Code)
	}
}

func TestSubmitDetectionDecides(t *testing.T) {
	store := newFakeStore()
	store.plates[1] = plate.AuthorizedPlate{
		ID: 1, PlateNumber: "34ABC123", IsActive: true, Sensitivity: 85,
	}
	router, _ := newTestRouter(t, store)

	payload, _ := json.Marshal(map[string]interface{}{
		"plate_number": "34ABC123",
		"confidence":   92.0,
		"processed_by": "gate-cam-1",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/detections", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Token", testAPIToken)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", w.Code, w.Body.String())
	}

	var resp struct {
		Status       string `json:"status"`
		IsAuthorized bool   `json:"is_authorized"`
		ActionTaken  string `json:"action_taken"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != "success" || !resp.IsAuthorized || resp.ActionTaken != plate.ActionGranted {
		t.Errorf("unexpected response: %+v", resp)
	}
	if len(store.records) != 1 {
		t.Errorf("expected one plate record, got %d", len(store.records))
	}
}

func TestSubmitDetectionValidatesBody(t *testing.T) {
	router, _ := newTestRouter(t, newFakeStore())

	payload, _ := json.Marshal(map[string]interface{}{"confidence": 90.0})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/detections", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Token", testAPIToken)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("missing plate_number: status = %d, want 400", w.Code)
	}
}

func TestAdminRoutesRequireJWT(t *testing.T) {
	router, _ := newTestRouter(t, newFakeStore())

	w := doJSON(router, http.MethodGet, "/api/v1/authorized-plates", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("no token: status = %d, want 401", w.Code)
	}

	w = doJSON(router, http.MethodGet, "/api/v1/authorized-plates", "bogus", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("bogus token: status = %d, want 401", w.Code)
	}
}

func TestPlateRegistryCRUD(t *testing.T) {
	store := newFakeStore()
	router, auth := newTestRouter(t, store)
	token := adminToken(t, auth)

	w := doJSON(router, http.MethodPost, "/api/v1/authorized-plates", token, map[string]interface{}{
		"plate_number": "34ABC123",
		"description":  "delivery van",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create: status = %d, body %s", w.Code, w.Body.String())
	}

	// Duplicate create maps to 409.
	w = doJSON(router, http.MethodPost, "/api/v1/authorized-plates", token, map[string]interface{}{
		"plate_number": "34ABC123",
	})
	if w.Code != http.StatusConflict {
		t.Errorf("duplicate create: status = %d, want 409", w.Code)
	}

	w = doJSON(router, http.MethodGet, "/api/v1/authorized-plates/1", token, nil)
	if w.Code != http.StatusOK {
		t.Errorf("get: status = %d, want 200", w.Code)
	}

	w = doJSON(router, http.MethodPost, "/api/v1/authorized-plates/1/deactivate", token, nil)
	if w.Code != http.StatusOK {
		t.Errorf("deactivate: status = %d, want 200", w.Code)
	}

	w = doJSON(router, http.MethodDelete, "/api/v1/authorized-plates/1", token, nil)
	if w.Code != http.StatusOK {
		t.Errorf("delete: status = %d, want 200", w.Code)
	}

	w = doJSON(router, http.MethodGet, "/api/v1/authorized-plates/1", token, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("get deleted: status = %d, want 404", w.Code)
	}

	w = doJSON(router, http.MethodGet, "/api/v1/authorized-plates/abc", token, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad id: status = %d, want 400", w.Code)
	}
}

func TestCameraCRUD(t *testing.T) {
	router, auth := newTestRouter(t, newFakeStore())
	token := adminToken(t, auth)

	w := doJSON(router, http.MethodPost, "/api/v1/cameras", token, map[string]interface{}{
		"name":       "gate-cam-1",
		"ip_address": "10.0.0.20",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create camera: status = %d, body %s", w.Code, w.Body.String())
	}

	var created struct {
		Data plate.Camera `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("failed to decode camera: %v", err)
	}
	if created.Data.Port != 554 || created.Data.StreamType != "rtsp" {
		t.Errorf("defaults not applied: %+v", created.Data)
	}

	w = doJSON(router, http.MethodGet, "/api/v1/cameras", token, nil)
	if w.Code != http.StatusOK {
		t.Errorf("list cameras: status = %d, want 200", w.Code)
	}

	w = doJSON(router, http.MethodDelete, "/api/v1/cameras/999", token, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("delete unknown camera: status = %d, want 404", w.Code)
	}
}

func TestLogin(t *testing.T) {
	router, _ := newTestRouter(t, newFakeStore())

	w := doJSON(router, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": "admin",
		"password": "admin-pass",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("login: status = %d, body %s", w.Code, w.Body.String())
	}
	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil || resp.Token == "" {
		t.Fatalf("expected a token in the response, got %s", w.Body.String())
	}

	w = doJSON(router, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": "admin",
		"password": "wrong",
	})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("bad password: status = %d, want 401", w.Code)
	}
}
