package parcels

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"parcel-tracking/internal/models"
	"parcel-tracking/pkg/utils"

	"github.com/labstack/echo/v4"
)

type memRepo struct {
	parcels map[string]models.Parcel
}

func (r *memRepo) FindByID(_ context.Context, id string) (*models.Parcel, error) {
	p, ok := r.parcels[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &p, nil
}

func (r *memRepo) UpdateStatus(_ context.Context, id string, status models.ParcelStatus, driverID *string) (*models.Parcel, error) {
	p, ok := r.parcels[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	p.Status = status
	p.DriverID = driverID
	r.parcels[id] = p
	return &p, nil
}

type stubLocations struct {
	locs map[string]models.DriverLocation
	err  error
}

func (s stubLocations) GetLocation(_ context.Context, driverID string) (*models.DriverLocation, error) {
	if s.err != nil {
		return nil, s.err
	}
	loc, ok := s.locs[driverID]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &loc, nil
}

type sentNotice struct {
	to, parcelID string
	status       models.ParcelStatus
}

type recordingNotifier struct {
	sent []sentNotice
	err  error
}

func (n *recordingNotifier) NotifyStatus(_ context.Context, to, parcelID string, status models.ParcelStatus) error {
	n.sent = append(n.sent, sentNotice{to, parcelID, status})
	return n.err
}

func ptr(s string) *string { return &s }

var (
	pickup   = models.Coordinate{Latitude: 23.7808, Longitude: 90.4071}
	delivery = models.Coordinate{Latitude: 23.7461, Longitude: 90.3742}
)

func newRepo() *memRepo {
	return &memRepo{parcels: map[string]models.Parcel{
		"P1": {ID: "P1", SellerID: "S1", DriverID: ptr("D1"), Status: models.StatusOngoing, Pickup: pickup, Delivery: delivery, RecipientEmail: "r@example.com"},
		"P2": {ID: "P2", SellerID: "S1", Status: models.StatusPending, Pickup: pickup, Delivery: delivery},
	}}
}

func TestService_GetTrackedEntity(t *testing.T) {
	locs := stubLocations{locs: map[string]models.DriverLocation{
		"D1": {DriverID: "D1", Latitude: 23.76, Longitude: 90.39},
	}}
	svc := NewService(newRepo(), locs, nil, echo.New().Logger)

	e, err := svc.GetTrackedEntity(context.Background(), "P1", "S1", models.RoleSeller)
	if err != nil {
		t.Fatalf("GetTrackedEntity: %v", err)
	}
	if e.DriverID != "D1" || e.Status != models.StatusOngoing || e.Pickup != pickup || e.Delivery != delivery {
		t.Errorf("entity = %+v", e)
	}
	if e.CurrentPosition == nil || *e.CurrentPosition != (models.Coordinate{Latitude: 23.76, Longitude: 90.39}) {
		t.Errorf("current position = %v", e.CurrentPosition)
	}

	e, err = svc.GetTrackedEntity(context.Background(), "P2", "c1", models.RoleCustomer)
	if err != nil {
		t.Fatalf("GetTrackedEntity P2: %v", err)
	}
	if e.HasDriver() || e.CurrentPosition != nil || e.Seed() != pickup {
		t.Errorf("unassigned entity = %+v", e)
	}
}

func TestService_GetTrackedEntity_Access(t *testing.T) {
	svc := NewService(newRepo(), stubLocations{}, nil, echo.New().Logger)
	tests := []struct {
		name, parcel, user, role string
		wantErr                  error
	}{
		{"owner seller", "P1", "S1", models.RoleSeller, nil},
		{"other seller", "P1", "S2", models.RoleSeller, models.ErrNotFound},
		{"bound driver", "P1", "D1", models.RoleDriver, nil},
		{"other driver", "P1", "D2", models.RoleDriver, models.ErrNotFound},
		{"driver on unassigned", "P2", "D1", models.RoleDriver, models.ErrNotFound},
		{"admin", "P1", "a1", models.RoleAdmin, nil},
		{"missing", "P9", "a1", models.RoleAdmin, models.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.GetTrackedEntity(context.Background(), tt.parcel, tt.user, tt.role)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestService_GetTrackedEntity_LocationErrorFallsBack(t *testing.T) {
	svc := NewService(newRepo(), stubLocations{err: errors.New("db down")}, nil, echo.New().Logger)
	e, err := svc.GetTrackedEntity(context.Background(), "P1", "a1", models.RoleAdmin)
	if err != nil {
		t.Fatalf("GetTrackedEntity: %v", err)
	}
	if e.CurrentPosition != nil || e.Seed() != pickup {
		t.Errorf("entity = %+v, want pickup seed", e)
	}
}

func TestService_UpdateStatus(t *testing.T) {
	tests := []struct {
		name       string
		parcel     string
		req        models.UpdateParcelStatusRequest
		wantErr    error
		wantDriver *string
	}{
		{"assign with driver", "P2", models.UpdateParcelStatusRequest{Status: models.StatusAssigned, DriverID: ptr("D7")}, nil, ptr("D7")},
		{"assign without driver", "P2", models.UpdateParcelStatusRequest{Status: models.StatusAssigned}, models.ErrDriverRequired, nil},
		{"skip ahead", "P2", models.UpdateParcelStatusRequest{Status: models.StatusDelivered}, models.ErrInvalidStatusTransition, nil},
		{"deliver keeps driver", "P1", models.UpdateParcelStatusRequest{Status: models.StatusDelivered}, nil, ptr("D1")},
		{"missing", "P9", models.UpdateParcelStatusRequest{Status: models.StatusCancelled}, models.ErrNotFound, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(newRepo(), stubLocations{}, nil, echo.New().Logger)
			p, err := svc.UpdateStatus(context.Background(), tt.parcel, "a1", models.RoleAdmin, tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if p.Status != tt.req.Status {
				t.Errorf("status = %s, want %s", p.Status, tt.req.Status)
			}
			if (p.DriverID == nil) != (tt.wantDriver == nil) || (p.DriverID != nil && *p.DriverID != *tt.wantDriver) {
				t.Errorf("driver = %v, want %v", p.DriverID, tt.wantDriver)
			}
		})
	}
}

func TestService_UpdateStatus_UnassignClearsDriver(t *testing.T) {
	repo := newRepo()
	repo.parcels["P3"] = models.Parcel{ID: "P3", DriverID: ptr("D1"), Status: models.StatusAssigned}
	svc := NewService(repo, stubLocations{}, nil, echo.New().Logger)

	p, err := svc.UpdateStatus(context.Background(), "P3", "a1", models.RoleAdmin, models.UpdateParcelStatusRequest{Status: models.StatusPending})
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if p.DriverID != nil {
		t.Errorf("driver = %v, want cleared", *p.DriverID)
	}
}

func TestService_UpdateStatus_NotifiesOnTerminal(t *testing.T) {
	n := &recordingNotifier{err: errors.New("ses down")}
	svc := NewService(newRepo(), stubLocations{}, n, echo.New().Logger)

	p, err := svc.UpdateStatus(context.Background(), "P1", "a1", models.RoleAdmin, models.UpdateParcelStatusRequest{Status: models.StatusDelivered})
	if err != nil {
		t.Fatalf("notification failure leaked: %v", err)
	}
	if p.Status != models.StatusDelivered {
		t.Errorf("status = %s", p.Status)
	}
	if len(n.sent) != 1 || n.sent[0] != (sentNotice{"r@example.com", "P1", models.StatusDelivered}) {
		t.Errorf("sent = %+v", n.sent)
	}

	// No recipient, no email.
	if _, err := svc.UpdateStatus(context.Background(), "P2", "a1", models.RoleAdmin, models.UpdateParcelStatusRequest{Status: models.StatusCancelled}); err != nil {
		t.Fatal(err)
	}
	if len(n.sent) != 1 {
		t.Errorf("sent = %+v, want no email for P2", n.sent)
	}
}

func TestService_UpdateStatus_DriverOwnership(t *testing.T) {
	tests := []struct {
		name    string
		parcel  string
		driver  string
		req     models.UpdateParcelStatusRequest
		wantErr error
	}{
		{"bound driver delivers", "P1", "D1", models.UpdateParcelStatusRequest{Status: models.StatusDelivered}, nil},
		{"other driver", "P1", "D2", models.UpdateParcelStatusRequest{Status: models.StatusDelivered}, models.ErrForbidden},
		{"unassigned parcel", "P2", "D1", models.UpdateParcelStatusRequest{Status: models.StatusAssigned, DriverID: ptr("D1")}, models.ErrForbidden},
		{"hand to another driver", "P1", "D1", models.UpdateParcelStatusRequest{Status: models.StatusReturned, DriverID: ptr("D2")}, models.ErrForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newRepo()
			svc := NewService(repo, stubLocations{}, nil, echo.New().Logger)
			_, err := svc.UpdateStatus(context.Background(), tt.parcel, tt.driver, models.RoleDriver, tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if err != nil && repo.parcels[tt.parcel].Status == tt.req.Status {
				t.Errorf("status changed despite %v", err)
			}
		})
	}
}

func newTestServer(svc ServiceInterface, userID, role string) *echo.Echo {
	e := echo.New()
	e.Validator = utils.GetValidator()
	g := e.Group("", func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("userID", userID)
			c.Set("userRole", role)
			return next(c)
		}
	})
	RegisterRoutes(g, NewHandler(svc))
	return e
}

func TestHandler_GetParcel(t *testing.T) {
	svc := NewService(newRepo(), stubLocations{}, nil, echo.New().Logger)
	e := newTestServer(svc, "S1", models.RoleSeller)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/parcels/P1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", rec.Code, rec.Body)
	}
	var got models.TrackedEntity
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.ParcelID != "P1" || got.DriverID != "D1" || got.Status != models.StatusOngoing {
		t.Errorf("entity = %+v", got)
	}

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/parcels/P9", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing parcel status = %d, want 404", rec.Code)
	}
}

func TestHandler_UpdateStatus(t *testing.T) {
	tests := []struct {
		name   string
		parcel string
		body   string
		status int
	}{
		{"assign", "P2", `{"status":"assigned","driver_id":"D3"}`, http.StatusOK},
		{"no driver", "P2", `{"status":"assigned"}`, http.StatusBadRequest},
		{"bad transition", "P2", `{"status":"delivered"}`, http.StatusConflict},
		{"unknown status", "P2", `{"status":"lost"}`, http.StatusBadRequest},
		{"bad json", "P2", `{"status":`, http.StatusBadRequest},
		{"missing", "P9", `{"status":"cancelled"}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestServer(NewService(newRepo(), stubLocations{}, nil, echo.New().Logger), "a1", models.RoleAdmin)
			req := httptest.NewRequest(http.MethodPut, "/parcels/"+tt.parcel+"/status", strings.NewReader(tt.body))
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d (%s)", rec.Code, tt.status, rec.Body)
			}
		})
	}
}

func TestHandler_UpdateStatus_OtherDriverForbidden(t *testing.T) {
	e := newTestServer(NewService(newRepo(), stubLocations{}, nil, echo.New().Logger), "D2", models.RoleDriver)
	req := httptest.NewRequest(http.MethodPut, "/parcels/P1/status", strings.NewReader(`{"status":"delivered"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403 (%s)", rec.Code, rec.Body)
	}
}
