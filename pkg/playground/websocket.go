package playground

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"koala/pkg/vm"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// The playground is served to any origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Message is one server-to-client frame of a run.
type Message struct {
	Type  string `json:"type"`
	Run   string `json:"run,omitempty"`
	Data  string `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

const (
	MessageOutput = "output"
	MessageDone   = "done"
	MessageError  = "error"
)

// handleWebSocket runs every source message it receives on a fresh
// machine, one at a time, streaming output as it is printed.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxSourceBytes)

	for {
		var req sourceRequest
		if err := conn.ReadJSON(&req); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug().Err(err).Msg("websocket read")
			}
			return
		}

		if err := s.run(conn, req.Source); err != nil {
			log.Debug().Err(err).Msg("websocket write")
			return
		}
	}
}

// run compiles and executes source, reporting back over conn. The
// returned error is a transport failure; program failures are sent to
// the client.
func (s *Server) run(conn *websocket.Conn, source string) error {
	id := uuid.NewString()
	logger := log.With().Str("run", id).Logger()

	ins, err := s.cache.Compile(source)
	if err != nil {
		logger.Info().Err(err).Msg("compile failed")
		return conn.WriteJSON(Message{Type: MessageError, Run: id, Error: err.Error()})
	}

	var writeErr error
	machine := vm.New(func(text string) {
		if writeErr != nil {
			return
		}
		writeErr = conn.WriteJSON(Message{Type: MessageOutput, Run: id, Data: text})
	}, s.vmOpts...)
	machine.Load(ins)

	runErr := machine.Run()
	if writeErr != nil {
		return writeErr
	}
	if runErr != nil {
		logger.Info().Err(runErr).Int("steps", machine.Steps()).Msg("run faulted")
		return conn.WriteJSON(Message{Type: MessageError, Run: id, Error: runErr.Error()})
	}

	logger.Info().Int("steps", machine.Steps()).Msg("run finished")
	return conn.WriteJSON(Message{Type: MessageDone, Run: id})
}
