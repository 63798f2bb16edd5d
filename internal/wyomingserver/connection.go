package wyomingserver

import (
	"context"
	"log/slog"
	"net"
	"sync"

	"github.com/google/uuid"

	"github.com/loqalabs/loqa-voxd/internal/protocolerr"
	"github.com/loqalabs/loqa-voxd/internal/session"
	"github.com/loqalabs/loqa-voxd/internal/wireformat"
	"github.com/loqalabs/loqa-voxd/internal/wyoming"
)

// Connection owns one TCP socket's receive buffer and session state: the
// single reader that decodes frames and drives the TTS/STT session
// machines, and a mutex-guarded writer so a session's outbound frames
// never interleave with another's on the same socket.
type Connection struct {
	id     string
	conn   net.Conn
	deps   Deps
	logger *slog.Logger

	writeMu sync.Mutex

	tts *session.TTSSession
	stt *session.STTSession
}

func newConnection(conn net.Conn, deps Deps, logger *slog.Logger) *Connection {
	c := &Connection{id: uuid.NewString(), conn: conn, deps: deps, logger: logger}
	onErr := func() { deps.OnConnectionError() }
	c.tts = session.NewTTSSession(deps.Synth, c, deps.TTSConfig, onErr)
	c.stt = session.NewSTTSession(deps.Recognizer, c, onErr)
	return c
}

// WriteEvent implements session.FrameWriter.
func (c *Connection) WriteEvent(e wyoming.Event, payload []byte) error {
	frame, err := wyoming.EncodeFrame(e, payload)
	if err != nil {
		return err
	}
	data, err := wireformat.Encode(frame)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_, err = c.conn.Write(data)
	return err
}

// serve runs the connection's read loop until the frame, the session
// machines, or the context signal it should stop.
func (c *Connection) serve(ctx context.Context) {
	defer c.conn.Close()

	var buf []byte
	chunk := make([]byte, 32*1024)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		frame, consumed, err := wireformat.Decode(buf)
		if err == nil {
			buf = buf[consumed:]
			if handleErr := c.dispatch(ctx, frame); handleErr != nil {
				c.logger.Debug("wyoming: connection closing", "err", handleErr)
				return
			}
			continue
		}
		if err != wireformat.ErrNeedMore {
			c.deps.OnConnectionError()
			c.logger.Info("wyoming: protocol framing error", "err", err)
			return
		}

		n, readErr := c.conn.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
		}
		if readErr != nil {
			return
		}
	}
}

func (c *Connection) dispatch(ctx context.Context, frame wireformat.Frame) error {
	ev, err := wyoming.DecodeEvent(frame)
	if err != nil {
		c.deps.OnConnectionError()
		return err
	}

	switch e := ev.(type) {
	case wyoming.Describe:
		c.deps.notify(c.id, "describe")
		return c.WriteEvent(c.deps.Describe(), nil)
	case wyoming.Synthesize:
		c.deps.notify(c.id, "synthesize-start")
		err := c.handleSessionErr(c.tts.HandleSynthesize(ctx, e))
		c.deps.notify(c.id, "synthesize-stop")
		return err
	case wyoming.SynthesizeStart:
		c.deps.notify(c.id, "synthesize-start")
		return c.handleSessionErr(c.tts.HandleSynthesizeStart(e))
	case wyoming.SynthesizeChunk:
		return c.handleSessionErr(c.tts.HandleSynthesizeChunk(ctx, e))
	case wyoming.SynthesizeStop:
		err := c.handleSessionErr(c.tts.HandleSynthesizeStop(ctx))
		c.deps.notify(c.id, "synthesize-stop")
		return err
	case wyoming.Transcribe:
		c.deps.notify(c.id, "transcribe")
		return c.handleSessionErr(c.stt.HandleTranscribe(e))
	case wyoming.AudioStart:
		return c.handleSessionErr(c.stt.HandleAudioStart(e))
	case wyoming.AudioChunk:
		return c.handleSessionErr(c.stt.HandleAudioChunk(frame.Payload))
	case wyoming.AudioStop:
		err := c.handleSessionErr(c.stt.HandleAudioStop(ctx))
		c.deps.notify(c.id, "audio-stop")
		return err
	default:
		return nil
	}
}

// handleSessionErr applies the error-kind policy table: state violations
// are logged and swallowed, everything else closes the connection.
func (c *Connection) handleSessionErr(err error) error {
	if err == nil {
		return nil
	}
	if violation, ok := err.(*protocolerr.SessionStateViolation); ok {
		c.logger.Info("wyoming: session state violation", "detail", violation.Detail)
		return nil
	}
	return err
}
