package parcelsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/BearBump/ParcelBox/internal/models"
	"github.com/BearBump/ParcelBox/internal/services/parcels"
)

type fakeService struct {
	addFromText func(ctx context.Context, text string) ([]*models.HydratedPackage, error)
	list        func(ctx context.Context, includeCompleted bool) ([]*models.HydratedPackage, error)
	get         func(ctx context.Context, id string) (*models.HydratedPackage, error)
	update      func(ctx context.Context, id string, patch models.PackagePatch) (*models.HydratedPackage, error)
	del         func(ctx context.Context, id string) error
	clear       func(ctx context.Context) error
	refreshAll  func(ctx context.Context) (bool, error)
	refreshOne  func(ctx context.Context, id string) (*models.HydratedPackage, error)
	stats       func() parcels.Stats
}

func (f *fakeService) AddFromText(ctx context.Context, text string) ([]*models.HydratedPackage, error) {
	return f.addFromText(ctx, text)
}

func (f *fakeService) List(ctx context.Context, includeCompleted bool) ([]*models.HydratedPackage, error) {
	return f.list(ctx, includeCompleted)
}

func (f *fakeService) Get(ctx context.Context, id string) (*models.HydratedPackage, error) {
	return f.get(ctx, id)
}

func (f *fakeService) Update(ctx context.Context, id string, patch models.PackagePatch) (*models.HydratedPackage, error) {
	return f.update(ctx, id, patch)
}

func (f *fakeService) Delete(ctx context.Context, id string) error { return f.del(ctx, id) }
func (f *fakeService) Clear(ctx context.Context) error             { return f.clear(ctx) }

func (f *fakeService) RefreshAll(ctx context.Context) (bool, error) { return f.refreshAll(ctx) }

func (f *fakeService) RefreshOne(ctx context.Context, id string) (*models.HydratedPackage, error) {
	return f.refreshOne(ctx, id)
}

func (f *fakeService) Stats() parcels.Stats { return f.stats() }

func newTestServer(svc Service) *httptest.Server {
	return httptest.NewServer(New(svc).Routes())
}

func hydrated(id, number string) *models.HydratedPackage {
	return &models.HydratedPackage{
		Package: models.Package{ID: id, TrackingNumber: number},
		Status:  models.StatusInTransit,
	}
}

func TestAddPackages(t *testing.T) {
	var gotText string
	srv := newTestServer(&fakeService{
		addFromText: func(_ context.Context, text string) ([]*models.HydratedPackage, error) {
			gotText = text
			return []*models.HydratedPackage{hydrated("p1", "1Z12345E0205271688")}, nil
		},
	})
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/packages", "application/json",
		strings.NewReader(`{"text":"1Z12345E0205271688"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Equal(t, "1Z12345E0205271688", gotText)

	var body struct {
		Packages []*models.HydratedPackage `json:"packages"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Packages, 1)
	require.Equal(t, "p1", body.Packages[0].ID)
}

func TestAddPackages_badInput(t *testing.T) {
	srv := newTestServer(&fakeService{
		addFromText: func(context.Context, string) ([]*models.HydratedPackage, error) {
			return nil, fmt.Errorf("no tracking numbers found")
		},
	})
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/packages", "application/json", strings.NewReader(`{"text":"junk"}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp, err = http.Post(srv.URL+"/packages", "application/json", strings.NewReader(`not json`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestListPackages(t *testing.T) {
	var gotInclude bool
	srv := newTestServer(&fakeService{
		list: func(_ context.Context, includeCompleted bool) ([]*models.HydratedPackage, error) {
			gotInclude = includeCompleted
			return []*models.HydratedPackage{hydrated("p1", "1Z12345E0205271688")}, nil
		},
	})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/packages?includeCompleted=true")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, gotInclude)
	require.Equal(t, "application/json", resp.Header.Get("Content-Type"))
}

func TestGetPackage_notFound(t *testing.T) {
	srv := newTestServer(&fakeService{
		get: func(context.Context, string) (*models.HydratedPackage, error) { return nil, nil },
	})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/packages/no-such-id")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUpdatePackage(t *testing.T) {
	var gotPatch models.PackagePatch
	srv := newTestServer(&fakeService{
		update: func(_ context.Context, id string, patch models.PackagePatch) (*models.HydratedPackage, error) {
			gotPatch = patch
			return hydrated(id, "1Z12345E0205271688"), nil
		},
	})
	defer srv.Close()

	req, err := http.NewRequest(http.MethodPatch, srv.URL+"/packages/p1",
		strings.NewReader(`{"isCompleted":true}`))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotNil(t, gotPatch.Completed)
	require.True(t, *gotPatch.Completed)
	require.Nil(t, gotPatch.Notes)
}

func TestUpdatePackage_emptyPatch(t *testing.T) {
	srv := newTestServer(&fakeService{})
	defer srv.Close()

	req, err := http.NewRequest(http.MethodPatch, srv.URL+"/packages/p1", strings.NewReader(`{}`))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDeletePackage(t *testing.T) {
	var deleted string
	srv := newTestServer(&fakeService{
		del: func(_ context.Context, id string) error {
			deleted = id
			return nil
		},
	})
	defer srv.Close()

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/packages/p1", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Equal(t, "p1", deleted)
}

func TestClearPackages(t *testing.T) {
	cleared := false
	srv := newTestServer(&fakeService{
		clear: func(context.Context) error {
			cleared = true
			return nil
		},
	})
	defer srv.Close()

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/packages", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.True(t, cleared)
}

func TestRefreshAll_busy(t *testing.T) {
	srv := newTestServer(&fakeService{
		refreshAll: func(context.Context) (bool, error) { return false, nil },
	})
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/packages/refresh", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, false, body["refreshed"])
}

func TestRefreshOne(t *testing.T) {
	srv := newTestServer(&fakeService{
		refreshOne: func(_ context.Context, id string) (*models.HydratedPackage, error) {
			return hydrated(id, "1Z12345E0205271688"), nil
		},
	})
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/packages/p1/refresh", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var h models.HydratedPackage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&h))
	require.Equal(t, "p1", h.ID)
}

func TestStats(t *testing.T) {
	srv := newTestServer(&fakeService{
		stats: func() parcels.Stats {
			return parcels.Stats{TotalRefreshed: 7, TotalErrors: 1}
		},
	})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/stats")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var st parcels.Stats
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	require.Equal(t, int64(7), st.TotalRefreshed)
	require.Equal(t, int64(1), st.TotalErrors)
}
