package main

import (
	"errors"
	"net/http"

	"github.com/CodedInternet/godiffdrive/onboard"
	"github.com/go-chi/render"
	"github.com/shopspring/decimal"
)

//---
// Error payloads
//---

type ErrResponse struct {
	Err            error `json:"-"`
	HTTPStatusCode int   `json:"-"`

	StatusText string `json:"status"`
	ErrorText  string `json:"error,omitempty"`
}

func (e *ErrResponse) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.HTTPStatusCode)
	return nil
}

func ErrInvalidRequest(err error) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: http.StatusBadRequest,
		StatusText:     "Invalid request",
		ErrorText:      err.Error(),
	}
}

func ErrUnauthorized(err error) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: http.StatusUnauthorized,
		StatusText:     "Unauthorized",
		ErrorText:      err.Error(),
	}
}

func ErrPermissionDenied(err error) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: http.StatusForbidden,
		StatusText:     "Permission denied",
		ErrorText:      err.Error(),
	}
}

func ErrRender(err error) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: http.StatusInternalServerError,
		StatusText:     "Error rendering response",
		ErrorText:      err.Error(),
	}
}

var ErrNotFound = &ErrResponse{HTTPStatusCode: http.StatusNotFound, StatusText: "Resource not found"}

//---
// Command payloads
//---

// CommandPayload is the wire form of one loop command. Value is a string
// so the client controls the decimal exactly.
type CommandPayload struct {
	Name  string `json:"cmd"`
	Flag  bool   `json:"flag,omitempty"`
	Value string `json:"value,omitempty"`
}

func (c *CommandPayload) Bind(r *http.Request) error {
	if c.Name == "" {
		return errors.New("cmd is required")
	}
	return nil
}

var commandKinds = map[string]onboard.CommandKind{
	"start":    onboard.CmdStart,
	"stop":     onboard.CmdStop,
	"reset":    onboard.CmdReset,
	"shutdown": onboard.CmdShutdown,
	"enable":   onboard.CmdSetControlled,
	"limit_a":  onboard.CmdSetLimitA,
	"limit_b":  onboard.CmdSetLimitB,
	"goto":     onboard.CmdSetDestination,
	"gain":     onboard.CmdSetGain,
	"manual_a": onboard.CmdManualA,
	"manual_b": onboard.CmdManualB,
}

// command translates a payload into the loop's vocabulary.
func (c *CommandPayload) command() (cmd onboard.Command, err error) {
	kind, ok := commandKinds[c.Name]
	if !ok {
		return cmd, errors.New("unknown command " + c.Name)
	}

	cmd.Kind = kind
	cmd.Flag = c.Flag
	if c.Value != "" {
		cmd.Value, err = decimal.NewFromString(c.Value)
		if err != nil {
			return
		}
	}
	return
}

//---
// Views
//---

type StatePayload struct {
	Running   bool             `json:"running"`
	Handshake string           `json:"handshake"`
	Snapshot  onboard.Snapshot `json:"snapshot"`
}

// GetState reports the latest tick record and run state.
func GetState(w http.ResponseWriter, r *http.Request) {
	running, hs := ENV.Loop.Status()
	render.JSON(w, r, StatePayload{
		Running:   running,
		Handshake: hs.String(),
		Snapshot:  ENV.Loop.Snapshot(),
	})
}

// PostCommand applies one command to the loop.
func PostCommand(w http.ResponseWriter, r *http.Request) {
	data := &CommandPayload{}
	if err := render.Bind(r, data); err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}

	cmd, err := data.command()
	if err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}

	if err := ENV.Loop.Do(cmd); err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}

	render.JSON(w, r, map[string]string{"status": "ok"})
}
