package main

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/knadh/koanf"
	"go.uber.org/zap"

	"github.com/nasa-jpl/dboard/comm"
	"github.com/nasa-jpl/dboard/dboard"
	"github.com/nasa-jpl/dboard/generichttp"
	dboardhttp "github.com/nasa-jpl/dboard/generichttp/dboard"
	"github.com/nasa-jpl/dboard/usrp2"
)

func TestDefaultsWithoutFile(t *testing.T) {
	kk := koanf.New(".")
	if err := loadConfig(kk, filepath.Join(t.TempDir(), "missing.yml")); err != nil {
		t.Fatal(err)
	}
	c := config{}
	if err := kk.Unmarshal("", &c); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(defaults(), c); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestFileThenEnv(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "dboardsrv.yml")
	yml := `Addr: ":9000"
Motherboard:
  Addr: /dev/ttyUSB0
  Serial: true
  Timeout: 500ms
`
	if err := os.WriteFile(fn, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DBOARDSRV_MOTHERBOARD_MASTERCLOCKRATE", "50000000")
	t.Setenv("DBOARDSRV_MOCK", "true")

	kk := koanf.New(".")
	if err := loadConfig(kk, fn); err != nil {
		t.Fatal(err)
	}
	c := config{}
	if err := kk.Unmarshal("", &c); err != nil {
		t.Fatal(err)
	}
	want := defaults()
	want.Addr = ":9000"
	want.Mock = true
	want.Motherboard.Addr = "/dev/ttyUSB0"
	want.Motherboard.Serial = true
	want.Motherboard.Timeout = 500 * time.Millisecond
	want.Motherboard.MasterClockRate = 50e6
	if diff := cmp.Diff(want, c); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestEnvKey(t *testing.T) {
	f := envKey([]string{"Addr", "Motherboard.USB.VID"})
	if got := f("DBOARDSRV_MOTHERBOARD_USB_VID"); got != "Motherboard.USB.VID" {
		t.Errorf("got %q", got)
	}
	if got := f("DBOARDSRV_ADDR"); got != "Addr" {
		t.Errorf("got %q", got)
	}
}

func TestNewLoggerRejectsBadLevel(t *testing.T) {
	c := defaults()
	c.LogLevel = "chatty"
	if _, err := newLogger(c); err == nil {
		t.Error("bad level accepted")
	}
}

func TestMuxOverMock(t *testing.T) {
	c := defaults()
	c.Mock = true
	link, err := openLink(c, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	mb := comm.NewMotherboard(link, c.Motherboard.MasterClockRate)
	db, err := usrp2.NewDboardIface(mb, usrp2.NewAD9510(mb))
	if err != nil {
		t.Fatal(err)
	}
	mux := buildMux(dboardhttp.NewHTTPDboard(dboard.NewLocked(db)), "usrp2")

	do := func(method, path, body string) int {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, httptest.NewRequest(method, path, strings.NewReader(body)))
		return w.Code
	}
	if code := do(http.MethodGet, "/usrp2/rx/clock/rate", ""); code != http.StatusOK {
		t.Errorf("clock rate gave %d", code)
	}
	if code := do(http.MethodPost, "/usrp2/lock", `{"bool": true}`); code != http.StatusOK {
		t.Fatalf("lock gave %d", code)
	}
	if code := do(http.MethodPost, "/usrp2/rx/gpio/io", `{"u32": 1}`); code != http.StatusLocked {
		t.Errorf("write while locked gave %d", code)
	}
	if code := do(http.MethodGet, "/usrp2/rx/gpio/io", ""); code != http.StatusOK {
		t.Errorf("read while locked gave %d", code)
	}
	if code := do(http.MethodPost, "/usrp2/lock", `{"bool": false}`); code != http.StatusOK {
		t.Fatalf("unlock gave %d", code)
	}
	if code := do(http.MethodPost, "/usrp2/rx/gpio/io", `{"u32": 1}`); code != http.StatusOK {
		t.Errorf("write after unlock gave %d", code)
	}
}

type staticRoutes generichttp.RouteTable

func (s staticRoutes) RT() generichttp.RouteTable { return generichttp.RouteTable(s) }

func TestMuxMountsAnyHTTPer(t *testing.T) {
	h := staticRoutes{
		generichttp.MethodPath{Method: http.MethodPost, Path: "/ping"}: func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		},
	}
	mux := buildMux(h, "/bench")
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/bench/ping", nil))
	if w.Code != http.StatusNoContent {
		t.Errorf("ping gave %d", w.Code)
	}
	mux.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/bench/lock", strings.NewReader(`{"bool": true}`)))
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/bench/ping", nil))
	if w.Code != http.StatusLocked {
		t.Errorf("ping while locked gave %d", w.Code)
	}
}
