package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"market-pulse/src/helpers"
	"market-pulse/src/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// WebSocket Handlers
// -----------------------------------------------------------------------------

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// commandSource tags error events that answer a client command.
const commandSource = "session"

// -----------------------------------------------------------------------------

func (s *APIServer) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Info("Failed to upgrade websocket: %v", err)
		return
	}

	session := s.Registry.Register()
	for _, topic := range models.DefaultTopics {
		if err := s.Registry.Subscribe(session.ID, topic); err != nil {
			s.Logger.Error("Subscribe %s to %s failed: %v", session.ID, topic, err)
		}
	}

	client := &Client{
		hub:     s,
		conn:    conn,
		session: session,
	}
	s.resync(client)
	s.Logger.Info("Client %s connected from %s", session.ID, c.ClientIP())

	go client.writePump()
	go client.readPump()
}

// resync sends the current composite state on both data topics.
func (s *APIServer) resync(client *Client) {
	s.Broadcaster.Resync(client.session, models.TopicDataUpdate, s.State.DataUpdate())
	s.Broadcaster.Resync(client.session, models.TopicNewsUpdate, s.State.News())
}

// -----------------------------------------------------------------------------
// Client Message Handling
// -----------------------------------------------------------------------------

// HandleClientMessage applies one command. Failures are answered on the
// error topic to this client only; the connection stays open.
func (s *APIServer) HandleClientMessage(client *Client, message []byte) {
	var cmd models.MClientCommand
	if err := json.Unmarshal(message, &cmd); err != nil {
		s.replyError(client, fmt.Sprintf("malformed command: %v", err))
		return
	}

	if err := s.applyCommand(client, cmd); err != nil {
		s.replyError(client, err.Error())
	}
}

func (s *APIServer) applyCommand(client *Client, cmd models.MClientCommand) error {
	id := client.session.ID

	switch cmd.Type {
	case models.CommandRequestNewsUpdate:
		return s.requestNews()

	case models.CommandSelectInstrument:
		instrument := strings.ToUpper(strings.TrimSpace(cmd.Instrument))
		if instrument == "" {
			return errors.New("select_instrument requires an instrument")
		}
		if client.instrument != "" && client.instrument != instrument {
			if err := s.Registry.Unsubscribe(id, models.InstrumentTopic(client.instrument)); err != nil {
				return err
			}
		}
		if err := s.Registry.Subscribe(id, models.InstrumentTopic(instrument)); err != nil {
			return err
		}
		client.instrument = instrument

		s.Broadcaster.Reply(client.session, models.TopicChartStatus, models.MChartStatus{
			InstrumentID: instrument,
			State:        s.chartState(instrument),
		})
		return nil

	case models.CommandSubscribe:
		if cmd.Topic == "" {
			return errors.New("subscribe requires a topic")
		}
		return s.Registry.Subscribe(id, cmd.Topic)

	case models.CommandUnsubscribe:
		if cmd.Topic == "" {
			return errors.New("unsubscribe requires a topic")
		}
		return s.Registry.Unsubscribe(id, cmd.Topic)

	case models.CommandResync:
		s.resync(client)
		return nil

	case "":
		return errors.New("command type missing")

	default:
		return fmt.Errorf("unknown command %q", cmd.Type)
	}
}

// requestNews forces a refresh of every news source.
func (s *APIServer) requestNews() error {
	found := false
	for _, info := range s.Refresher.Sources() {
		if info.Kind != models.KindNews {
			continue
		}
		found = true
		if err := s.Refresher.ForceRefresh(info.ID); err != nil {
			return err
		}
	}
	if !found {
		return fmt.Errorf("%w: news", helpers.ErrUnknownSource)
	}
	return nil
}

func (s *APIServer) chartState(instrument string) models.ChartState {
	resp, err := s.Charts.RenderChart(models.MChartRequest{InstrumentID: instrument})
	if err != nil {
		return models.ChartNotFound
	}
	return resp.State
}

func (s *APIServer) replyError(client *Client, message string) {
	s.Logger.Debug("Command from %s rejected: %s", client.session.ID, message)
	s.Broadcaster.Reply(client.session, models.TopicError, models.MErrorEvent{
		SourceID: commandSource,
		Message:  message,
	})
}
