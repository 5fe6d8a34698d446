// Package locker provides an HTTP middleware which allows a daughterboard to
// be locked by an operator, returning 423 (locked) to requests that would
// change its state
package locker

import (
	"go/types"
	"net/http"
	"strings"

	"go.uber.org/atomic"
	"goji.io"
	"goji.io/pat"

	"github.com/nasa-jpl/dboard/generichttp"
	"github.com/nasa-jpl/dboard/server"
)

// Locker is a type which behaves like a sync.Mutex without the blocking,
// and holds a list of paths to not protect
type Locker struct {
	locked atomic.Bool

	// DoNotProtect is a list of path suffixes the lock does not apply to
	DoNotProtect []string
}

// New returns a new Locker with DoNotProtect prepopulated with "/lock"
func New() *Locker {
	return &Locker{DoNotProtect: []string{"/lock"}}
}

// Lock the locker
func (l *Locker) Lock() {
	l.locked.Store(true)
}

// Unlock the locker
func (l *Locker) Unlock() {
	l.locked.Store(false)
}

// Locked returns true if the locker is locked
func (l *Locker) Locked() bool {
	return l.locked.Load()
}

// Check is an HTTP middleware that returns http.StatusLocked for requests
// other than GET and HEAD while Locked() is true, otherwise passes down the line
func (l *Locker) Check(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if l.Locked() && r.Method != http.MethodGet && r.Method != http.MethodHead {
			protected := true
			for _, str := range l.DoNotProtect {
				if strings.HasSuffix(r.URL.Path, str) {
					protected = false
				}
			}
			if protected {
				http.Error(w, "daughterboard is locked", http.StatusLocked)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// HTTPSet calls Lock or Unlock based on json:bool on the request body
func (l *Locker) HTTPSet(w http.ResponseWriter, r *http.Request) {
	b := server.BoolT{}
	if !generichttp.DecodeBody(w, r, &b) {
		return
	}
	if b.Bool {
		l.Lock()
	} else {
		l.Unlock()
	}
	w.WriteHeader(http.StatusOK)
}

// HTTPGet returns Locked() over HTTP as JSON
func (l *Locker) HTTPGet(w http.ResponseWriter, r *http.Request) {
	hp := server.HumanPayload{T: types.Bool, Bool: l.Locked()}
	hp.EncodeAndRespond(w, r)
}

// Mux returns a root goji mux serving GET and POST at stem+"/lock".  stem
// is the full path the mux is mounted under, e.g. "" or "/usrp2".
func (l *Locker) Mux(stem string) *goji.Mux {
	mux := goji.NewMux()
	path := strings.TrimSuffix(stem, "/") + "/lock"
	mux.HandleFunc(pat.Get(path), l.HTTPGet)
	mux.HandleFunc(pat.Post(path), l.HTTPSet)
	return mux
}
