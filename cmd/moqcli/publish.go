package main

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"

	"github.com/OkutaniDaichi0106/moqtransport/moqt"
	"github.com/OkutaniDaichi0106/moqtransport/moqt/message"
	"github.com/spf13/cobra"
)

// linePublisher answers SUBSCRIBE requests for one track and sends each input
// line as a new group to every accepted subscriber.
type linePublisher struct {
	namespace string
	track     string
	priority  uint64
	logger    *slog.Logger

	mu      sync.Mutex
	writers map[uint64]*moqt.ObjectStreamWriter

	ready chan struct{}
	once  sync.Once
}

func newLinePublisher(namespace, track string, priority uint64, logger *slog.Logger) *linePublisher {
	return &linePublisher{
		namespace: namespace,
		track:     track,
		priority:  priority,
		logger:    logger,
		writers:   make(map[uint64]*moqt.ObjectStreamWriter),
		ready:     make(chan struct{}),
	}
}

func (p *linePublisher) HandleMessage(sess *moqt.Session, msg message.Message) error {
	switch m := msg.(type) {
	case *message.AnnounceOk:
		p.logger.Info("namespace announced", "namespace", m.TrackNamespace)
	case *message.AnnounceError:
		return fmt.Errorf("announce rejected: %s", m.ReasonPhrase)
	case *message.Subscribe:
		if m.TrackNamespace != p.namespace || m.TrackName != p.track {
			return sess.SubscribeError(m.SubscribeID, moqt.TrackNotFoundErrorCode, "unknown track", m.TrackAlias)
		}
		// Opening the stream waits on flow control, which must not block the control stream.
		go p.accept(sess, m)
	case *message.Unsubscribe:
		p.mu.Lock()
		w, ok := p.writers[m.SubscribeID]
		delete(p.writers, m.SubscribeID)
		p.mu.Unlock()
		if ok {
			w.Close()
			sess.SubscribeDone(m.SubscribeID, moqt.UnsubscribedStatusCode, "", false, 0, 0)
		}
	case *message.GoAway:
		p.logger.Warn("relay is going away", "new_session_uri", m.NewSessionURI)
	}
	return nil
}

func (p *linePublisher) accept(sess *moqt.Session, m *message.Subscribe) {
	ctx := sess.Context()

	if err := sess.SubscribeOk(m.SubscribeID, 0, m.GroupOrder, false, 0, 0); err != nil {
		p.logger.Error("failed to accept subscription", "subscribe_id", m.SubscribeID, "error", err)
		return
	}

	w, err := sess.OpenTrackStream(ctx, m.SubscribeID, m.TrackAlias, p.priority)
	if err != nil {
		p.logger.Error("failed to open track stream", "subscribe_id", m.SubscribeID, "error", err)
		return
	}

	p.mu.Lock()
	p.writers[m.SubscribeID] = w
	p.mu.Unlock()
	p.once.Do(func() { close(p.ready) })

	p.logger.Info("subscriber accepted", "subscribe_id", m.SubscribeID)
}

// publish sends every line of r as one object in its own group.
func (p *linePublisher) publish(sess *moqt.Session, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	var group uint64
	for scanner.Scan() {
		line := append([]byte(nil), scanner.Bytes()...)

		p.mu.Lock()
		for id, w := range p.writers {
			if err := w.WriteObject(group, 0, line); err != nil {
				p.logger.Warn("dropping subscriber", "subscribe_id", id, "error", err)
				w.CancelWrite(moqt.InternalStreamErrorCode)
				delete(p.writers, id)
			}
		}
		p.mu.Unlock()
		group++
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for id, w := range p.writers {
		if err := w.WriteStatus(group, 0, message.ObjectStatusEndOfTrack); err != nil {
			p.logger.Debug("failed to mark end of track", "subscribe_id", id, "error", err)
		}
		w.Close()
		sess.SubscribeDone(id, moqt.TrackEndedStatusCode, "end of input", group > 0, group, 0)
		delete(p.writers, id)
	}
	return nil
}

func publishCmd(root *rootOptions) *cobra.Command {
	var (
		priority uint64
		auth     string
		wait     bool
	)

	cmd := &cobra.Command{
		Use:   "publish URL NAMESPACE TRACK",
		Short: "Announce a namespace and publish stdin lines as objects",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			logger, err := root.logger()
			if err != nil {
				return err
			}

			pub := newLinePublisher(args[1], args[2], priority, logger)

			client, err := root.client(ctx, pub)
			if err != nil {
				return err
			}
			defer client.Close()

			sess, err := client.Dial(ctx, args[0])
			if err != nil {
				return err
			}

			var params []message.Parameter
			if auth != "" {
				params = append(params, message.Parameter{Type: message.AuthorizationInfoParameterType, Value: []byte(auth)})
			}
			if err := sess.Announce(args[1], params...); err != nil {
				return err
			}

			if wait {
				select {
				case <-pub.ready:
				case <-ctx.Done():
					return nil
				case <-sess.Context().Done():
					return sess.Err()
				}
			}

			if err := pub.publish(sess, cmd.InOrStdin()); err != nil {
				return err
			}

			return sess.Unannounce(args[1])
		},
	}

	flags := cmd.Flags()
	flags.Uint64Var(&priority, "priority", 0, "publisher priority")
	flags.StringVar(&auth, "auth", "", "authorization token")
	flags.BoolVar(&wait, "wait", true, "wait for the first subscriber before reading input")

	return cmd
}

var _ moqt.Handler = (*linePublisher)(nil)
