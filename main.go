package main

import (
	"flag"
	"fmt"
	"io/ioutil"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/CodedInternet/godiffdrive/onboard"
	"github.com/CodedInternet/godiffdrive/onboard/hardware"
	"github.com/CodedInternet/godiffdrive/onboard/i2cbus"
	"github.com/abiosoft/ishell"
	"github.com/asdine/storm"
	"github.com/caarlos0/env"
	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v2"
)

type EnvConfig struct {
	JWT_ISSUER string `env:"RESIN_DEVICE_UUID" envDefault:"DEV"`
	JWT_SECRET string `env:"JWT_SECRET" envDefault:"insecure-dev-secret"`
	RESIN      bool   `env:"RESIN" envDefault:"0"`
	DEBUG      bool   `env:"DEBUG" envDefault:"0"`
	SRCDIR     string `env:"SRCDIR" envDefault:"."`
	HTMLDIR    string `env:"HTMLDIR" envDefault:"./frontend/dist/"`
	DB         *storm.DB
	Loop       *onboard.ControlLoop
	Simulated  bool
}

var (
	ENV *EnvConfig
)

func init() {
	ENV = new(EnvConfig)
	env.Parse(ENV)

	// db path depends on whether we are running on a resin device
	var dbFile string
	if ENV.RESIN {
		dbFile = "/data/live.db"
	} else {
		dbFile, _ = filepath.Abs("./tmp/dev.db")
		dir := filepath.Dir(dbFile)
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			os.Mkdir(dir, 0755)
		}
	}

	db, err := openDb(dbFile)
	if err != nil {
		panic(err)
	}
	ENV.DB = db
}

func main() {
	simulated := flag.Bool("sim", false, "Run against the simulated drive")
	port := flag.String("port", "0.0.0.0:80", "Specify the ip:port to listen on")
	configFile := flag.String("config", "", "Path to the drive config yaml")
	flag.Parse()

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.RedirectSlashes)
	r.Use(middleware.Recoverer) // make sure this is last

	defer ENV.DB.Close()

	config := loadConfig(*configFile)

	ENV.Simulated = *simulated

	var loop *onboard.ControlLoop
	var simMCU *onboard.SimulatedMCU
	var err error
	if ENV.Simulated {
		println("Creating simulated drive")
		loop, simMCU, err = onboard.NewSimulatedLoop(config)
		if err != nil {
			panic(fmt.Sprintf("Unable to initialize simulated drive: %v", err))
		}
		stop := make(chan struct{})
		defer close(stop)
		onboard.RunSimulatedClock(loop.Tick, stop)
	} else {
		loop, err = buildDrive(config)
		if err != nil {
			panic(fmt.Sprintf("Unable to initialize drive: %v", err))
		}
	}
	ENV.Loop = loop

	//---
	// Create a local shell
	//---
	{
		shell := ishell.New()
		shell.Println("Differential drive development shell")
		shell.ShowPrompt(true)

		shell.AddCmd(&ishell.Cmd{
			Name: "createsuperuser",
			Help: "createsuperuser <email> <password>",
			Func: func(c *ishell.Context) {
				c.ShowPrompt(false)
				defer c.ShowPrompt(true)

				var email string
				if len(c.Args) >= 1 {
					email = c.Args[0]
				} else {
					c.Print("Email: ")
					email = c.ReadLine()
				}

				var password string
				if len(c.Args) >= 2 {
					password = c.Args[1]
				} else {
					c.Print("Password: ")
					password = c.ReadPassword()
				}

				user := &User{
					Email: email,
					Name:  email,
					Admin: true,
				}
				user.SetPassword([]byte(password))
				if err := ENV.DB.Save(user); err != nil {
					panic(err)
				}

				c.Println("Superuser created")
			},
		})

		do := func(c *ishell.Context, cmd onboard.Command) {
			if err := loop.Do(cmd); err != nil {
				c.Err(err)
			}
		}

		value := func(c *ishell.Context, i int) (decimal.Decimal, bool) {
			if len(c.Args) <= i {
				c.Err(fmt.Errorf("missing argument %d", i+1))
				return decimal.Decimal{}, false
			}
			v, err := decimal.NewFromString(c.Args[i])
			if err != nil {
				c.Err(err)
				return decimal.Decimal{}, false
			}
			return v, true
		}

		shell.AddCmd(&ishell.Cmd{
			Name: "start",
			Help: "begin the token handshake and run the cycle",
			Func: func(c *ishell.Context) { do(c, onboard.Command{Kind: onboard.CmdStart}) },
		})
		shell.AddCmd(&ishell.Cmd{
			Name: "stop",
			Help: "stop the run and zero the motors",
			Func: func(c *ishell.Context) { do(c, onboard.Command{Kind: onboard.CmdStop}) },
		})
		shell.AddCmd(&ishell.Cmd{
			Name: "reset",
			Help: "zero token, positions and pose",
			Func: func(c *ishell.Context) { do(c, onboard.Command{Kind: onboard.CmdReset}) },
		})
		shell.AddCmd(&ishell.Cmd{
			Name: "enable",
			Help: "enable <on|off> closed loop control",
			Func: func(c *ishell.Context) {
				on := len(c.Args) >= 1 && c.Args[0] == "on"
				do(c, onboard.Command{Kind: onboard.CmdSetControlled, Flag: on})
			},
		})
		shell.AddCmd(&ishell.Cmd{
			Name: "limit",
			Help: "limit <a|b> <fraction>",
			Func: func(c *ishell.Context) {
				kind := onboard.CmdSetLimitA
				if len(c.Args) >= 1 && c.Args[0] == "b" {
					kind = onboard.CmdSetLimitB
				}
				if v, ok := value(c, 1); ok {
					do(c, onboard.Command{Kind: kind, Value: v})
				}
			},
		})
		shell.AddCmd(&ishell.Cmd{
			Name: "goto",
			Help: "goto <revolutions>",
			Func: func(c *ishell.Context) {
				if v, ok := value(c, 0); ok {
					do(c, onboard.Command{Kind: onboard.CmdSetDestination, Value: v})
				}
			},
		})
		shell.AddCmd(&ishell.Cmd{
			Name: "gain",
			Help: "gain <value>",
			Func: func(c *ishell.Context) {
				if v, ok := value(c, 0); ok {
					do(c, onboard.Command{Kind: onboard.CmdSetGain, Value: v})
				}
			},
		})
		shell.AddCmd(&ishell.Cmd{
			Name: "manual",
			Help: "manual <a|b> <fraction>",
			Func: func(c *ishell.Context) {
				kind := onboard.CmdManualA
				if len(c.Args) >= 1 && c.Args[0] == "b" {
					kind = onboard.CmdManualB
				}
				if v, ok := value(c, 1); ok {
					do(c, onboard.Command{Kind: kind, Value: v})
				}
			},
		})
		shell.AddCmd(&ishell.Cmd{
			Name: "state",
			Help: "print the latest tick record",
			Func: func(c *ishell.Context) {
				running, hs := loop.Status()
				c.Printf("running=%v handshake=%s %s\n", running, hs, loop.Snapshot())
			},
		})

		if simMCU != nil {
			shell.AddCmd(&ishell.Cmd{
				Name: "glitch",
				Help: "make the simulated firmware fail the next exchange",
				Func: func(c *ishell.Context) { simMCU.FailNext() },
			})
		}

		go shell.Start()
	}

	//---
	// Build the API routes
	//---
	r.Route("/api", func(r chi.Router) {
		r.Post("/login", Login)

		r.Route("/", func(r chi.Router) {
			r.Use(ValidateJWT)

			r.Get("/state", GetState)
			r.Post("/cmd", PostCommand)
			r.Get("/refresh_token", JWTRefresh)
		})
	})

	r.Route("/ws", func(r chi.Router) {
		if ENV.RESIN && !ENV.DEBUG {
			r.Use(ValidateJWT)
		} else {
			fmt.Println("Running in debug mode. Authentication disabled.")
		}

		r.Get("/state", StateFeedHandler)
	})

	FileServer(r, "/", http.Dir(ENV.HTMLDIR))

	fmt.Println("Listening on port", *port)
	if err := http.ListenAndServe(*port, r); err != nil {
		log.Fatal(err)
	}
}

// loadConfig reads the drive yaml, falling back to the rig defaults when
// no file is present.
func loadConfig(path string) (config onboard.DriveConfig) {
	if path == "" {
		if ENV.RESIN {
			path = "/data/drive_config.yaml"
		} else {
			path, _ = filepath.Abs(ENV.SRCDIR + "/drive_config.yaml")
		}
	}

	yamlFile, err := ioutil.ReadFile(path)
	if err != nil {
		log.Printf("no config at %s, using defaults", path)
		return onboard.DefaultConfig()
	}

	if err = yaml.Unmarshal(yamlFile, &config); err != nil {
		panic(fmt.Sprintf("Unable to unmarshal yaml: %v", err))
	}
	return
}

// buildDrive opens the shared bus and brings up the real hardware. Any
// failure here is fatal; a half initialized drive must not run.
func buildDrive(config onboard.DriveConfig) (loop *onboard.ControlLoop, err error) {
	bus, err := i2cbus.Open(config.Bus.Device)
	if err != nil {
		return
	}

	mcu, err := hardware.NewEncoderMCU(bus, config.Bus.MCUAddr)
	if err != nil {
		return
	}

	hat, err := hardware.NewMotorDriverHAT(bus, config.Bus.HATAddr, config.PWMFrequency)
	if err != nil {
		return
	}

	controller := onboard.NewPController(decimal.NewFromFloat(config.Gain))
	loop, err = onboard.NewControlLoop(config, mcu, hat, controller)
	if err != nil {
		return
	}

	pin, err := hardware.NewCyclePin(config.CyclePin)
	if err != nil {
		return
	}
	pin.Run(loop.Tick)
	return
}

func openDb(dbFile string) (db *storm.DB, err error) {
	db, err = storm.Open(dbFile)
	if err != nil {
		return
	}

	if err := db.Init(&User{}); err != nil {
		return nil, err
	}

	return
}

// FileServer conveniently sets up a http.FileServer handler to serve
// static files from a http.FileSystem.
func FileServer(r chi.Router, path string, root http.FileSystem) {
	if strings.ContainsAny(path, "{}*") {
		panic("FileServer does not permit URL parameters.")
	}

	fs := http.StripPrefix(path, http.FileServer(root))

	if path != "/" && path[len(path)-1] != '/' {
		r.Get(path, http.RedirectHandler(path+"/", 301).ServeHTTP)
		path += "/"
	}
	path += "*"

	r.Get(path, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fs.ServeHTTP(w, r)
	}))
}
