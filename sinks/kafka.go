package sinks

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/twmb/franz-go/pkg/kgo"
)

type KafkaSink struct {
	pipelineKey            string
	pipelineName           string
	pipelineConnectionType string
	// Kafka producer details
	bootstrapServers string
	topic            string

	kafkaProducerClient *kgo.Client
}

func (k *KafkaSink) Init(args SinkConfig) error {
	k.pipelineKey = args.Key
	k.pipelineName = args.Name
	k.pipelineConnectionType = args.ConnectionType

	if args.Config["bootstrap_servers"] == "" || args.Config["topic"] == "" {
		log.Error().Msg("Error missing config values")
		return fmt.Errorf("error missing config values")
	}
	log.Debug().Str("bootstrap_servers", args.Config["bootstrap_servers"]).Str("topic", args.Config["topic"]).Send()

	k.bootstrapServers = args.Config["bootstrap_servers"]
	k.topic = args.Config["topic"]

	return nil
}

func (k *KafkaSink) Connect(ctx context.Context) error {
	log.Trace().Msg("Connecting to kafka cluster as a sink...")
	opts := []kgo.Opt{
		kgo.SeedBrokers(k.bootstrapServers),
		kgo.DefaultProduceTopic(k.topic),
	}
	client, err := kgo.NewClient(opts...)
	if err != nil {
		log.Err(err).Msg("Error when creating a kafka producer!")
		return err
	}
	k.kafkaProducerClient = client

	return nil
}

func (k *KafkaSink) produce(ctx context.Context, payload []byte) {
	record := &kgo.Record{Value: payload}
	k.kafkaProducerClient.Produce(ctx, record, func(record *kgo.Record, err error) {
		if err != nil {
			log.Err(err).Interface("record", record).Msg("record had a produce error")
		}
	})
}

func (k *KafkaSink) Write(ctx context.Context, wg *sync.WaitGroup, dataChan <-chan []byte) error {
	if k.kafkaProducerClient == nil {
		return fmt.Errorf("kafka producer is not connected")
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case payload, ok := <-dataChan:
				if !ok {
					log.Debug().Msg("The upstream channel (dataChan) closed")
					k.kafkaProducerClient.Flush(ctx)
					return
				}
				k.produce(ctx, payload)
			case <-ctx.Done():
				k.kafkaProducerClient.Flush(context.Background())
				return
			}
		}
	}()
	return nil
}

func (k *KafkaSink) Key() (string, error) {
	return k.pipelineKey, nil
}

func (k *KafkaSink) Name() string {
	return k.pipelineName
}

func (k *KafkaSink) Info() string {
	return fmt.Sprintf("%s|%s|%s", k.pipelineKey, k.pipelineConnectionType, k.topic)
}

func (k *KafkaSink) Disconnect() error {
	if k.kafkaProducerClient != nil {
		k.kafkaProducerClient.Close()
	}
	return nil
}
