// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package internal

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/hoxca/nightcal/internal/archive"
)

// Archive stub which knows no target until one is created
type archiveStub struct {
	mu      sync.Mutex
	target  *archive.Target
	uploads int
	auths   int
	token   string // if set, the only token accepted outside authentication
	refused int
}

func (a *archiveStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.token != "" && r.URL.Path != "/api/token-auth/" && r.Header.Get("Authorization") != "Token "+a.token {
		a.refused++
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":"Invalid token."}`))
		return
	}
	switch r.URL.Path {
	case "/api/token-auth/":
		a.auths++
		w.Write([]byte(`{"token":"fresh"}`))
	case "/targets/createTarget/":
		var tgt archive.Target
		if err := json.NewDecoder(r.Body).Decode(&tgt); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		a.target = &tgt
		w.WriteHeader(http.StatusCreated)
	case "/upload/":
		a.uploads++
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if a.target == nil || a.target.Name != r.MultipartForm.Value["target"][0] {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"target":["Target does not exist"]}`))
			return
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{}`))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func stubConfig(t *testing.T, stub http.Handler) archive.Config {
	srv := httptest.NewServer(stub)
	t.Cleanup(srv.Close)
	cfg := archive.DefaultConfig()
	cfg.BaseURL = srv.URL
	cfg.UploadURL = srv.URL + "/upload/"
	cfg.TokenCache = filepath.Join(t.TempDir(), "credentials.yaml")
	return cfg
}

func TestLogin(t *testing.T) {
	stub := &archiveStub{}
	cfg := stubConfig(t, stub)

	if _, err := Login(context.Background(), cfg, "", ""); err == nil {
		t.Fatal("expected error without cache and credentials")
	}
	c, err := Login(context.Background(), cfg, "jdoe", "secret")
	if err != nil {
		t.Fatal(err)
	}
	if c.Token != "fresh" {
		t.Errorf("token %q", c.Token)
	}
	c, err = Login(context.Background(), cfg, "", "")
	if err != nil {
		t.Fatal(err)
	}
	if c.Token != "fresh" || stub.auths != 1 {
		t.Errorf("token %q after %d authentications, want cached token", c.Token, stub.auths)
	}
}

func TestUploadFilesCreatesTarget(t *testing.T) {
	stub := &archiveStub{}
	cfg := stubConfig(t, stub)
	dir := t.TempDir()
	img := constFrame("Light Frame", dims, 1)
	img.Header.Set("OBJCTRA", "05 35 17.3", "")
	img.Header.Set("OBJCTDEC", "-05 23 28", "")
	f1 := writeFrame(t, dir, "m42_1_calibrated.fits", img)
	f2 := writeFrame(t, dir, "m42_2_calibrated.fits", img)

	c := archive.NewClient(cfg, "tok")
	p := &UploadParams{Target: "M42", RA: math.NaN(), Dec: math.NaN()}
	outcomes := UploadFiles(context.Background(), c, []string{f1, f2}, p)
	if len(outcomes) != 2 {
		t.Fatalf("outcomes %v", outcomes)
	}
	for _, o := range outcomes {
		if o.Err != nil || o.Result.Status != archive.UploadSuccess {
			t.Errorf("%s: %v %v", o.FileName, o.Err, o.Result)
		}
	}
	if !outcomes[0].TargetCreated || outcomes[1].TargetCreated {
		t.Errorf("target created %v %v", outcomes[0].TargetCreated, outcomes[1].TargetCreated)
	}
	if stub.uploads != 3 {
		t.Errorf("%d uploads, want 3", stub.uploads)
	}
	if stub.target == nil || math.Abs(stub.target.RA-83.82208) > 1e-4 || math.Abs(stub.target.Dec+5.39111) > 1e-4 {
		t.Errorf("target %+v", stub.target)
	}
}

func TestUploadFilesWithoutCoordinates(t *testing.T) {
	stub := &archiveStub{}
	cfg := stubConfig(t, stub)
	f := writeFrame(t, t.TempDir(), "x_calibrated.fits", constFrame("Light Frame", dims, 1))

	c := archive.NewClient(cfg, "tok")
	outcomes := UploadFiles(context.Background(), c, []string{f}, &UploadParams{Target: "X", RA: math.NaN(), Dec: math.NaN()})
	if len(outcomes) != 1 || outcomes[0].Err == nil {
		t.Fatalf("expected error without coordinates, got %+v", outcomes)
	}
	if stub.target != nil {
		t.Errorf("target created without coordinates: %+v", stub.target)
	}

	outcomes = UploadFiles(context.Background(), c, []string{f}, &UploadParams{Target: "X", RA: 10, Dec: 20})
	if outcomes[0].Err != nil || outcomes[0].Result.Status != archive.UploadSuccess {
		t.Fatalf("with coordinates: %+v", outcomes[0])
	}
	if stub.target.RA != 10 || stub.target.Dec != 20 {
		t.Errorf("target %+v", stub.target)
	}
}

func TestUploadRefreshesRefusedToken(t *testing.T) {
	stub := &archiveStub{token: "fresh", target: &archive.Target{Name: "M42"}}
	cfg := stubConfig(t, stub)
	if err := archive.SaveToken(cfg.TokenCache, "jdoe", "revoked"); err != nil {
		t.Fatal(err)
	}
	f := writeFrame(t, t.TempDir(), "m42_calibrated.fits", constFrame("Light Frame", dims, 1))
	p := &UploadParams{Target: "M42", RA: math.NaN(), Dec: math.NaN(), Username: "jdoe", Password: "secret"}

	if err := CmdUpload(context.Background(), []string{f, f}, cfg, p); err != nil {
		t.Fatal(err)
	}
	if stub.auths != 1 || stub.refused != 1 || stub.uploads != 2 {
		t.Errorf("%d authentications, %d refused and %d uploads, want 1, 1 and 2", stub.auths, stub.refused, stub.uploads)
	}
	if _, token, ok := archive.LoadToken(cfg.TokenCache); !ok || token != "fresh" {
		t.Errorf("cached token %q ok %v, want fresh", token, ok)
	}

	// the next run uses the refreshed cache without authenticating
	if err := CmdUpload(context.Background(), []string{f}, cfg, p); err != nil {
		t.Fatal(err)
	}
	if stub.auths != 1 || stub.refused != 1 || stub.uploads != 3 {
		t.Errorf("%d authentications, %d refused and %d uploads, want 1, 1 and 3", stub.auths, stub.refused, stub.uploads)
	}
}

func TestUploadRefusedTokenWithoutCredentials(t *testing.T) {
	stub := &archiveStub{token: "fresh", target: &archive.Target{Name: "M42"}}
	cfg := stubConfig(t, stub)
	if err := archive.SaveToken(cfg.TokenCache, "jdoe", "revoked"); err != nil {
		t.Fatal(err)
	}
	f := writeFrame(t, t.TempDir(), "m42_calibrated.fits", constFrame("Light Frame", dims, 1))
	p := &UploadParams{Target: "M42", RA: math.NaN(), Dec: math.NaN()}

	if err := CmdUpload(context.Background(), []string{f}, cfg, p); err == nil {
		t.Fatal("expected failure with a refused token and no credentials")
	}
	if _, _, ok := archive.LoadToken(cfg.TokenCache); ok {
		t.Error("refused token still cached")
	}
	if stub.refused != 1 || stub.uploads != 0 {
		t.Errorf("%d refused and %d uploads, want 1 and 0", stub.refused, stub.uploads)
	}
}
