package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"cloud.google.com/go/pubsub"

	produceractor "github.com/popgraph/popgraph/internal/actors/pubsub/producer"
	subscriberactor "github.com/popgraph/popgraph/internal/actors/pubsub/subscriber"
	"github.com/popgraph/popgraph/internal/core/usecase"
	log "github.com/sirupsen/logrus"
)

func init() {
	// Log as JSON instead of the default ASCII formatter.
	log.SetFormatter(&log.JSONFormatter{})

	// Output to stdout instead of the default stderr
	log.SetOutput(os.Stdout)

	// Only log the DebugLevel severity or above.
	log.SetLevel(log.DebugLevel)
}

var (
	httpServerEndpoint = flag.String("http-server-endpoint", "localhost:8081", "HTTP server endpoint")
)

func run() error {
	ctx := context.Background()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	projectID := os.Getenv("PUBSUB_PROJECT_ID")
	if projectID == "" {
		projectID = "popgraph"
	}
	graphEventSubscriptionID := os.Getenv("PUBSUB_GRAPH_EVENT_SUBSCRIPTION_ID")
	if graphEventSubscriptionID == "" {
		graphEventSubscriptionID = "worker.cdc.popgraph.GraphEvents.sub"
	}
	graphEventPublicTopicID := os.Getenv("PUBSUB_PUBLIC_GRAPH_EVENT_TOPIC")
	if graphEventPublicTopicID == "" {
		graphEventPublicTopicID = "shared.popgraph.GraphEvents"
	}

	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return err
	}
	defer client.Close()

	topic := client.Topic(graphEventPublicTopicID)
	producer, err := produceractor.NewProducer(topic)
	if err != nil {
		return err
	}

	informer := usecase.NewInformer(producer)

	subscription := client.Subscription(graphEventSubscriptionID)
	subscriber := subscriberactor.NewSubscriber(subscriberactor.SubscriberArgs{
		GraphEventHandler: informer,
		Subscription:      subscription,
	})

	// start subscriber
	go func(ctx context.Context) {
		if err := subscriber.Consume(ctx); err != nil {
			panic(err)
		}
	}(ctx)

	// liveness endpoint
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	go func() {
		if err := http.ListenAndServe(*httpServerEndpoint, mux); err != nil {
			panic(err)
		}
	}()

	log.
		WithField("http-server-addr", *httpServerEndpoint).
		Info("worker up or soon to be up. listening to SIGTERM, SIGINT, SIGQUIT for stoping the worker")

	// Wait for signal
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	<-ch

	return nil
}

func main() {
	flag.Parse()

	if err := run(); err != nil {
		panic(err)
	}
}
