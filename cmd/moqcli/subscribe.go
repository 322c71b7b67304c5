package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/OkutaniDaichi0106/moqtransport/moqt"
	"github.com/OkutaniDaichi0106/moqtransport/moqt/message"
	"github.com/spf13/cobra"
)

func parseFilter(s string, startGroup, startObject uint64) (message.SubscribeFilter, error) {
	switch s {
	case "latest-group":
		return message.SubscribeFilter{Type: message.LatestGroup}, nil
	case "latest-object":
		return message.SubscribeFilter{Type: message.LatestObject}, nil
	case "absolute-start":
		return message.SubscribeFilter{Type: message.AbsoluteStart, StartGroup: startGroup, StartObject: startObject}, nil
	default:
		return message.SubscribeFilter{}, fmt.Errorf("unknown filter %q", s)
	}
}

func subscribeCmd(root *rootOptions) *cobra.Command {
	var (
		filter      string
		startGroup  uint64
		startObject uint64
		priority    uint8
		auth        string
		limit       int
		raw         bool
	)

	cmd := &cobra.Command{
		Use:   "subscribe URL NAMESPACE TRACK",
		Short: "Subscribe to a track and print its objects",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			f, err := parseFilter(filter, startGroup, startObject)
			if err != nil {
				return err
			}

			client, err := root.client(ctx, nil)
			if err != nil {
				return err
			}
			defer client.Close()

			sess, err := client.Dial(ctx, args[0])
			if err != nil {
				return err
			}

			opts := []moqt.SubscribeOption{
				moqt.WithFilter(f),
				moqt.WithSubscriberPriority(priority),
			}
			if auth != "" {
				opts = append(opts, moqt.WithAuthorizationInfo(auth))
			}

			sub, err := sess.Subscribe(ctx, args[1], args[2], opts...)
			if err != nil {
				return err
			}

			return printObjects(ctx, cmd.OutOrStdout(), sub, limit, raw)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&filter, "filter", "latest-group", "subscription filter (latest-group, latest-object, absolute-start)")
	flags.Uint64Var(&startGroup, "start-group", 0, "first group for absolute-start")
	flags.Uint64Var(&startObject, "start-object", 0, "first object for absolute-start")
	flags.Uint8Var(&priority, "priority", 0, "subscriber priority")
	flags.StringVar(&auth, "auth", "", "authorization token")
	flags.IntVarP(&limit, "count", "n", 0, "stop after this many objects")
	flags.BoolVar(&raw, "raw", false, "write payloads only")

	return cmd
}

type objectReader interface {
	ReadObject(ctx context.Context) (moqt.ObjectMessage, error)
}

func printObjects(ctx context.Context, w io.Writer, sub objectReader, limit int, raw bool) error {
	for n := 0; limit <= 0 || n < limit; n++ {
		obj, err := sub.ReadObject(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}

		if raw {
			if _, err := w.Write(obj.Payload); err != nil {
				return err
			}
			continue
		}

		fmt.Fprintf(w, "group=%d object=%d priority=%d status=%s forwarding=%s size=%d\n",
			obj.GroupID, obj.ObjectID, obj.PublisherPriority, obj.ObjectStatus, obj.Forwarding, len(obj.Payload))
	}
	return nil
}
