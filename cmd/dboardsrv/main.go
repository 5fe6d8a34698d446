package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/knadh/koanf"
	"go.uber.org/zap"

	yml "gopkg.in/yaml.v2"

	"github.com/nasa-jpl/dboard/comm"
	"github.com/nasa-jpl/dboard/dboard"
	"github.com/nasa-jpl/dboard/generichttp"
	dboardhttp "github.com/nasa-jpl/dboard/generichttp/dboard"
	"github.com/nasa-jpl/dboard/server/middleware/locker"
	"github.com/nasa-jpl/dboard/usrp2"
)

var (
	// Version is the version number.  Typically injected via ldflags with git build
	Version = "1"

	// ConfigFileName is what it sounds like
	ConfigFileName = "dboardsrv.yml"
	k              = koanf.New(".")
)

func root() {
	str := `dboardsrv exposes the daughterboard interface of a USRP2 over HTTP.
GPIO, ATR, SPI, I2C, clock, and aux DAC/ADC operations are each a route.

Usage:
	dboardsrv <command>

Commands:
	run
	help
	mkconf
	conf
	version`
	fmt.Println(str)
}

func help() {
	str := `dboardsrv is amenable to configuration via its .yaml file.  For a primer on YAML, see
https://yaml.org/start.html

When no configuration is provided, the defaults are used.
The command mkconf generates the configuration file with the default values.

Any key may be overridden from the environment with the prefix DBOARDSRV_ and
underscores between levels, e.g. DBOARDSRV_MOTHERBOARD_ADDR=/dev/ttyUSB0.

The motherboard is reached over USB if Motherboard.USB.VID is nonzero, otherwise
over TCP at Motherboard.Addr, or the serial port named by Motherboard.Addr if
Motherboard.Serial is true.  Mock: true replaces the motherboard with an
in-memory one.

POST {"bool": true} to <Root>/lock to reject all changes until unlocked.`
	fmt.Println(str)
}

func mkconf() {
	c := config{}
	err := k.Unmarshal("", &c)
	if err != nil {
		log.Fatal(err)
	}
	f, err := os.Create(ConfigFileName)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()
	err = yml.NewEncoder(f).Encode(c)
	if err != nil {
		log.Fatal(err)
	}
}

func printconf() {
	c := config{}
	err := k.Unmarshal("", &c)
	if err != nil {
		log.Fatal(err)
	}
	err = yml.NewEncoder(os.Stdout).Encode(c)
	if err != nil {
		log.Fatal(err)
	}
}

func pversion() {
	fmt.Printf("dboardsrv version %v\n", Version)
}

// openLink opens the link to the motherboard selected by the config
func openLink(c config, logger *zap.Logger) (comm.Link, error) {
	mb := c.Motherboard
	switch {
	case c.Mock:
		m := comm.NewMock()
		m.SetLogger(logger.Named("mock"))
		return m, nil
	case mb.USB.VID != 0:
		return comm.OpenUSBLink(mb.USB.VID, mb.USB.PID)
	default:
		rd := comm.NewRemoteDevice(mb.Addr, mb.Serial)
		rd.Baud = mb.Baud
		rd.Timeout = mb.Timeout
		rd.SetLogger(logger.Named("link"))
		return comm.NewStreamLink(rd), nil
	}
}

// buildMux mounts the routes of h and the lock under stem
func buildMux(h generichttp.HTTPer, stem string) chi.Router {
	lock := locker.New()

	stem = generichttp.SubMuxSanitize(stem)
	root := chi.NewRouter()
	root.Use(middleware.Logger)
	root.Use(middleware.Recoverer)
	root.Handle(strings.TrimSuffix(stem, "/")+"/lock", lock.Mux(stem))

	r := chi.NewRouter()
	r.Use(lock.Check)
	h.RT().Bind(r)
	root.Mount(stem, r)
	return root
}

func run() {
	cfg := config{}
	if err := k.Unmarshal("", &cfg); err != nil {
		log.Fatal(err)
	}
	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	link, err := openLink(cfg, logger)
	if err != nil {
		logger.Fatal("opening motherboard link", zap.Error(err))
	}
	mb := comm.NewMotherboard(link, cfg.Motherboard.MasterClockRate,
		comm.WithLogger(logger.Named("motherboard")),
		comm.WithRateLimit(cfg.Motherboard.PacketsPerSecond))
	defer mb.Close()

	db, err := usrp2.NewDboardIface(mb, usrp2.NewAD9510(mb), usrp2.WithLogger(logger.Named("usrp2")))
	if err != nil {
		logger.Fatal("initializing daughterboard interface", zap.Error(err))
	}

	srv := &http.Server{Addr: cfg.Addr, Handler: buildMux(dboardhttp.NewHTTPDboard(dboard.NewLocked(db)), cfg.Root)}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(sctx)
	}()

	logger.Info("now listening for requests",
		zap.String("addr", cfg.Addr), zap.String("root", cfg.Root), zap.Bool("mock", cfg.Mock))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server stopped", zap.Error(err))
	}
}

func main() {
	var cmd string
	args := os.Args
	if len(args) == 1 {
		root()
		return
	}
	if err := loadConfig(k, ConfigFileName); err != nil {
		log.Fatalf("error loading config: %v", err)
	}
	cmd = args[1]
	cmd = strings.ToLower(cmd)
	switch cmd {
	case "help":
		help()
		return
	case "mkconf":
		mkconf()
		return
	case "conf":
		printconf()
		return
	case "run":
		run()
		return
	case "version":
		pversion()
		return
	default:
		log.Fatal("unknown command")
	}
}
