package handlers

import (
	"context"
	"net/http"
	"time"

	"smart_irrigation/internal/engine"
	"smart_irrigation/internal/models"
	"smart_irrigation/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockAuth struct {
	signUpID      int
	signUpErr     error
	genTokenToken string
	genTokenErr   error
	parseID       int
	parseErr      error

	lastSignUpUsername string
	lastSignUpPassword string
	lastGenUsername    string
	lastGenPassword    string
	lastParseToken     string
}

func (m *mockAuth) SignUp(username, password string) (int, error) {
	m.lastSignUpUsername = username
	m.lastSignUpPassword = password
	return m.signUpID, m.signUpErr
}
func (m *mockAuth) GenerateToken(username, password string) (string, error) {
	m.lastGenUsername = username
	m.lastGenPassword = password
	return m.genTokenToken, m.genTokenErr
}
func (m *mockAuth) ParseToken(token string) (int, error) {
	m.lastParseToken = token
	return m.parseID, m.parseErr
}

type mockIrrigation struct {
	stopErr      error
	resumeErr    error
	resetErr     error
	advisoryErr  error
	lastAdvisory models.Advisory

	stopCalled     int
	resumeCalled   int
	resetCalled    int
	advisoryCalled int
}

func (m *mockIrrigation) EmergencyStop(ctx context.Context) error {
	m.stopCalled++
	return m.stopErr
}
func (m *mockIrrigation) Resume(ctx context.Context) error {
	m.resumeCalled++
	return m.resumeErr
}
func (m *mockIrrigation) Reset(ctx context.Context) error {
	m.resetCalled++
	return m.resetErr
}
func (m *mockIrrigation) SubmitAdvisory(ctx context.Context, a models.Advisory) error {
	m.advisoryCalled++
	m.lastAdvisory = a
	return m.advisoryErr
}

type mockMonitoring struct {
	state models.ControllerState
	err   error
}

func (m *mockMonitoring) GetState(ctx context.Context) (models.ControllerState, error) {
	return m.state, m.err
}

type mockEventLog struct {
	resp     []models.IrrigationEvent
	err      error
	lastFrom time.Time
	lastTo   time.Time
	lastType string
}

func (m *mockEventLog) List(ctx context.Context, f service.LogFilter) ([]models.IrrigationEvent, error) {
	m.lastFrom = f.From
	m.lastTo = f.To
	m.lastType = f.Type
	return m.resp, m.err
}

type mockPlants struct {
	info     service.PlantInfo
	getErr   error
	setErr   error
	clearErr error

	lastGetType   string
	lastSetType   string
	lastOverride  engine.ThresholdOverride
	lastClearType string
}

func (m *mockPlants) Get(plantType string) (service.PlantInfo, error) {
	m.lastGetType = plantType
	return m.info, m.getErr
}
func (m *mockPlants) SetThreshold(ctx context.Context, plantType string, o engine.ThresholdOverride) error {
	m.lastSetType = plantType
	m.lastOverride = o
	return m.setErr
}
func (m *mockPlants) ClearThreshold(ctx context.Context, plantType string) error {
	m.lastClearType = plantType
	return m.clearErr
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	h := NewHandler(s, nil)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}
