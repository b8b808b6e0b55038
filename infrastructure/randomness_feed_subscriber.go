package infrastructure

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"tokenlottery/application"
	"tokenlottery/application/dto"
	"tokenlottery/domain/entities"

	log "github.com/sirupsen/logrus"
)

// Subjects the randomness oracle publishes on
const (
	SubjectRandomnessCommitted = "randomness.committed"
	SubjectRandomnessRevealed  = "randomness.revealed"
)

// randomnessCommittedMessage is the wire form of a commitment; byte fields are hex encoded
type randomnessCommittedMessage struct {
	RequestRef string `json:"request_ref"`
	SeedTick   int64  `json:"seed_tick"`
	Commitment string `json:"commitment"`
}

type randomnessRevealedMessage struct {
	RequestRef string `json:"request_ref"`
	Seed       string `json:"seed"`
	RevealTick int64  `json:"reveal_tick"`
}

// RandomnessFeedSubscriber decodes oracle feed messages and hands them to the feed handler
type RandomnessFeedSubscriber struct {
	feed application.RandomnessFeed
}

// NewRandomnessFeedSubscriber creates a new randomness feed subscriber
func NewRandomnessFeedSubscriber(feed application.RandomnessFeed) *RandomnessFeedSubscriber {
	return &RandomnessFeedSubscriber{feed: feed}
}

// Subscribe registers durable consumers for both feed subjects
func (s *RandomnessFeedSubscriber) Subscribe(ctx context.Context, client *NATSClient) error {
	if err := client.Subscribe(SubjectRandomnessCommitted, func(data []byte) error {
		return s.HandleCommitted(ctx, data)
	}); err != nil {
		return err
	}
	return client.Subscribe(SubjectRandomnessRevealed, func(data []byte) error {
		return s.HandleRevealed(ctx, data)
	})
}

// HandleCommitted processes a randomness.committed message. Malformed or rejected messages
// are logged and acknowledged, since redelivery cannot make them valid.
func (s *RandomnessFeedSubscriber) HandleCommitted(ctx context.Context, data []byte) error {
	var msg randomnessCommittedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		log.WithError(err).Error("Dropping malformed randomness commitment")
		return nil
	}
	commitment, err := hex.DecodeString(msg.Commitment)
	if err != nil {
		log.WithError(err).WithField("request_ref", msg.RequestRef).Error("Dropping commitment with invalid hex")
		return nil
	}

	err = s.feed.HandleCommitted(ctx, dto.RandomnessCommitted{
		RequestRef: msg.RequestRef,
		SeedTick:   msg.SeedTick,
		Commitment: commitment,
	})
	return s.settle(err, msg.RequestRef)
}

// HandleRevealed processes a randomness.revealed message
func (s *RandomnessFeedSubscriber) HandleRevealed(ctx context.Context, data []byte) error {
	var msg randomnessRevealedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		log.WithError(err).Error("Dropping malformed randomness reveal")
		return nil
	}
	seed, err := hex.DecodeString(msg.Seed)
	if err != nil {
		log.WithError(err).WithField("request_ref", msg.RequestRef).Error("Dropping reveal with invalid hex")
		return nil
	}

	err = s.feed.HandleRevealed(ctx, dto.RandomnessRevealed{
		RequestRef: msg.RequestRef,
		Seed:       seed,
		RevealTick: msg.RevealTick,
	})
	return s.settle(err, msg.RequestRef)
}

// settle decides whether a failed message is redelivered. Only storage failures are; a reveal
// that arrives before its commitment is redelivered too.
func (s *RandomnessFeedSubscriber) settle(err error, requestRef string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, entities.ErrInvalidCommitment), errors.Is(err, entities.ErrAlreadyRevealed):
		log.WithError(err).WithField("request_ref", requestRef).Warn("Rejected randomness feed message")
		return nil
	default:
		return fmt.Errorf("failed to process randomness feed message %s: %w", requestRef, err)
	}
}
