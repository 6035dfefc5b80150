package feed

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

// ChangeHandler receives decoded change events from the watched streams
type ChangeHandler interface {
	HandleChange(event *ChangeEvent)
}

// ChangeConsumer reads table change streams through a Redis consumer group
// and forwards decoded events to its handler
type ChangeConsumer struct {
	rdb          *redis.Client
	ctx          context.Context
	cancel       context.CancelFunc
	consumerName string
	handler      ChangeHandler
}

// NewChangeConsumer creates a new ChangeConsumer instance
func NewChangeConsumer(handler ChangeHandler) *ChangeConsumer {
	rdb := GetRedisClient()
	if rdb == nil {
		return nil
	}

	hostname, _ := os.Hostname()
	pid := os.Getpid()
	consumerName := fmt.Sprintf("consumer-%s-%d", hostname, pid)

	ctx, cancel := context.WithCancel(GetContext())

	return &ChangeConsumer{
		rdb:          rdb,
		ctx:          ctx,
		cancel:       cancel,
		consumerName: consumerName,
		handler:      handler,
	}
}

// Start begins consuming every watched table stream
func (cc *ChangeConsumer) Start() error {
	if cc == nil || cc.rdb == nil {
		return fmt.Errorf("Redis client not available")
	}

	for _, table := range WatchedTables {
		streamKey := streamKeyFor(table)
		groupName := groupNameFor(table)

		// Create consumer group if it doesn't exist
		err := cc.rdb.XGroupCreateMkStream(cc.ctx, streamKey, groupName, "0").Err()
		if err != nil && err.Error() != "BUSYGROUP Consumer Group name already exists" {
			log.Printf("Failed to create consumer group for %s: %v", streamKey, err)
		}

		go cc.consumeLoop(streamKey, groupName)
	}

	return nil
}

// Stop cancels all consume loops. Best effort, never blocks.
func (cc *ChangeConsumer) Stop() {
	if cc != nil && cc.cancel != nil {
		cc.cancel()
	}
}

// consumeLoop continuously reads one table stream and forwards events
func (cc *ChangeConsumer) consumeLoop(streamKey, groupName string) {
	for {
		select {
		case <-cc.ctx.Done():
			return
		default:
		}

		streams, err := cc.rdb.XReadGroup(cc.ctx, &redis.XReadGroupArgs{
			Group:    groupName,
			Consumer: cc.consumerName,
			Streams:  []string{streamKey, ">"},
			Count:    100,
			Block:    time.Second,
		}).Result()

		if err != nil {
			if err == redis.Nil {
				// No messages, continue
				continue
			}
			if cc.ctx.Err() != nil {
				return
			}
			time.Sleep(time.Second)
			continue
		}

		for _, stream := range streams {
			for _, message := range stream.Messages {
				if err := cc.processMessage(message); err != nil {
					log.Printf("Failed to process change event on %s: %v", streamKey, err)
					continue
				}

				if err := cc.rdb.XAck(cc.ctx, streamKey, groupName, message.ID).Err(); err != nil {
					log.Printf("Failed to ack change event %s: %v", message.ID, err)
				}
			}
		}

		// Handle pending messages (reclaim stalled messages)
		go cc.reclaimPendingMessages(streamKey, groupName)
	}
}

// processMessage decodes a stream message and forwards it to the handler
func (cc *ChangeConsumer) processMessage(message redis.XMessage) error {
	eventData, ok := message.Values["data"].(string)
	if !ok {
		return fmt.Errorf("invalid message format: missing data field")
	}

	event, err := UnmarshalEvent(eventData)
	if err != nil {
		return fmt.Errorf("failed to unmarshal event: %w", err)
	}

	cc.handler.HandleChange(event)
	return nil
}

// reclaimPendingMessages reclaims pending messages that haven't been ACKed
func (cc *ChangeConsumer) reclaimPendingMessages(streamKey, groupName string) {
	pending, err := cc.rdb.XPendingExt(cc.ctx, &redis.XPendingExtArgs{
		Stream: streamKey,
		Group:  groupName,
		Start:  "-",
		End:    "+",
		Count:  100,
	}).Result()

	if err != nil {
		return
	}

	for _, p := range pending {
		// Claim messages pending for more than 30 seconds
		if p.Idle > 30*time.Second {
			claimed, err := cc.rdb.XClaim(cc.ctx, &redis.XClaimArgs{
				Stream:   streamKey,
				Group:    groupName,
				Consumer: cc.consumerName,
				MinIdle:  30 * time.Second,
				Messages: []string{p.ID},
			}).Result()

			if err == nil && len(claimed) > 0 {
				for _, msg := range claimed {
					cc.processMessage(msg)
					cc.rdb.XAck(cc.ctx, streamKey, groupName, msg.ID)
				}
			}
		}
	}
}

// PublishChange publishes a change event to the table's stream
func PublishChange(table, op, docID string) error {
	rdb := GetRedisClient()
	if rdb == nil {
		return fmt.Errorf("Redis client not available")
	}
	ctx := GetContext()

	event := NewChangeEvent(table, op, docID)
	eventData, err := MarshalEvent(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	// Add to stream with MAXLEN to bound history
	_, err = rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: streamKeyFor(table),
		Values: map[string]interface{}{
			"data": eventData,
		},
		MaxLen: 10000,
		Approx: true, // Use ~ for approximate trimming
	}).Result()

	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

func streamKeyFor(table string) string {
	return fmt.Sprintf("feed:%s:changes", table)
}

func groupNameFor(table string) string {
	return fmt.Sprintf("feed:%s:group", table)
}
