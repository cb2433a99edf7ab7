package sources

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/tarungka/sift/internal/event"
)

type KafkaSource struct {
	pipelineKey            string
	pipelineName           string
	pipelineConnectionType string
	// Kafka consumer details
	bootstrapServers string
	consumerGroup    string
	topic            string

	kafkaConsumerClient *kgo.Client
}

func (k *KafkaSource) Init(args SourceConfig) error {
	k.pipelineKey = args.Key
	k.pipelineName = args.Name
	k.pipelineConnectionType = args.ConnectionType

	if args.Config["bootstrap_servers"] == "" || args.Config["group"] == "" || args.Config["topic"] == "" {
		log.Error().Msg("Error missing config values")
		return fmt.Errorf("error missing config values")
	}
	log.Debug().Str("bootstrap_servers", args.Config["bootstrap_servers"]).Str("topic", args.Config["topic"]).Str("group", args.Config["group"]).Send()

	k.bootstrapServers = args.Config["bootstrap_servers"]
	k.consumerGroup = args.Config["group"]
	k.topic = args.Config["topic"]

	return nil
}

func (k *KafkaSource) Connect(ctx context.Context) error {
	log.Trace().Msg("Connecting to kafka cluster as a source...")
	opts := []kgo.Opt{
		kgo.SeedBrokers(k.bootstrapServers),
		kgo.ConsumerGroup(k.consumerGroup),
		kgo.ConsumeTopics(k.topic),
		kgo.AutoCommitMarks(),
	}
	client, err := kgo.NewClient(opts...)
	if err != nil {
		log.Err(err).Msg("Error when creating a kafka consumer!")
		return err
	}
	k.kafkaConsumerClient = client

	return nil
}

func (k *KafkaSource) Read(ctx context.Context, wg *sync.WaitGroup) (<-chan []byte, error) {
	if k.kafkaConsumerClient == nil {
		return nil, fmt.Errorf("kafka consumer is not connected")
	}

	out := make(chan []byte, 16)
	wg.Add(1)
	go func() {
		defer func() {
			log.Trace().Msg("Done reading from the kafka source")
			wg.Done()
		}()
		defer close(out)

		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			fetches := k.kafkaConsumerClient.PollFetches(ctx)
			if fetches.IsClientClosed() {
				return
			}
			fetches.EachError(func(t string, p int32, err error) {
				log.Err(err).Msgf("fetch err topic %s partition %d: %v", t, p, err)
			})
			if fetches.Empty() {
				time.Sleep(100 * time.Millisecond) // small backoff
				continue
			}

			fetches.EachRecord(func(record *kgo.Record) {
				select {
				case out <- record.Value:
					k.kafkaConsumerClient.MarkCommitRecords(record)
				case <-ctx.Done():
				}
			})
		}
	}()
	return out, nil
}

func (k *KafkaSource) Key() (string, error) {
	return k.pipelineKey, nil
}

func (k *KafkaSource) Name() string {
	return k.pipelineName
}

func (k *KafkaSource) Info() string {
	return fmt.Sprintf("%s|%s|%s", k.pipelineKey, k.pipelineConnectionType, k.topic)
}

func (k *KafkaSource) Origin() *event.OriginURI {
	host := k.bootstrapServers
	var port uint16
	if h, p, ok := strings.Cut(k.bootstrapServers, ":"); ok {
		if n, err := strconv.ParseUint(p, 10, 16); err == nil {
			host = h
			port = uint16(n)
		}
	}
	return &event.OriginURI{
		Scheme: "sift-kafka",
		Host:   host,
		Port:   port,
		Path:   []string{k.topic},
	}
}

func (k *KafkaSource) Disconnect() error {
	if k.kafkaConsumerClient != nil {
		k.kafkaConsumerClient.Close()
	}
	return nil
}
