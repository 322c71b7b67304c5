package moqt_test

import (
	"context"
	"errors"
	"io"
	"log"
	"time"

	"github.com/OkutaniDaichi0106/moqtransport/moqt"
	"github.com/OkutaniDaichi0106/moqtransport/moqt/message"
)

func ExampleClient_Dial() {
	client := &moqt.Client{
		Config: &moqt.Config{
			SetupTimeout:     3 * time.Second,
			SubscribeTimeout: 5 * time.Second,
		},
	}
	defer client.Close()

	ctx := context.Background()
	sess, err := client.Dial(ctx, "https://relay.example:4443/moq")
	if err != nil {
		log.Fatal(err)
	}

	sub, err := sess.Subscribe(ctx, "live", "video",
		moqt.WithFilter(message.SubscribeFilter{Type: message.LatestObject}),
	)
	if err != nil {
		log.Fatal(err)
	}

	for {
		obj, err := sub.ReadObject(ctx)
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			log.Fatal(err)
		}
		log.Printf("group %d object %d: %d bytes", obj.GroupID, obj.ObjectID, len(obj.Payload))
	}
}
