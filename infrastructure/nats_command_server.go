package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"tokenlottery/application"
	"tokenlottery/application/dto"
	"tokenlottery/domain/entities"

	log "github.com/sirupsen/logrus"
)

const (
	// CommandSubjectPrefix prefixes every command subject: lottery.cmd.<op>
	CommandSubjectPrefix = "lottery.cmd."

	commandQueue = "lottery-engine-commands"

	// unknownOpLabel replaces unrecognized operations in metric labels
	unknownOpLabel = "unknown"
)

// Command operation names
const (
	OpInitialize           = "initialize"
	OpInitializeCollection = "initialize_collection"
	OpBuyTicket            = "buy_ticket"
	OpCommitAWinner        = "commit_a_winner"
	OpChooseAWinner        = "choose_a_winner"
	OpClaimPrize           = "claim_prize"
	OpTransferTicket       = "transfer_ticket"
	OpGet                  = "get"
	OpTickets              = "tickets"
	OpParticipants         = "participants"
	OpBalance              = "balance"
)

const codeUnknownOperation = "UnknownOperation"

// ErrUnknownOperation is returned for command subjects with no handler
var ErrUnknownOperation = errors.New("unknown operation")

// ErrBadRequest is returned for request bodies that cannot be decoded
var ErrBadRequest = errors.New("bad request")

// CommandResponse is the reply to every command
type CommandResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	Code      string      `json:"code,omitempty"`
	Retryable bool        `json:"retryable,omitempty"`
}

type lotteryQuery struct {
	LotteryID int64 `json:"lottery_id"`
}

type balanceQuery struct {
	Account string `json:"account"`
}

// NATSCommandServer serves lottery operations over NATS request/reply
type NATSCommandServer struct {
	commands application.LotteryCommands
	metrics  *CommandMetrics
	timeout  time.Duration
}

// NewNATSCommandServer creates a new command server. metrics may be nil.
func NewNATSCommandServer(commands application.LotteryCommands, metrics *CommandMetrics) *NATSCommandServer {
	return &NATSCommandServer{
		commands: commands,
		metrics:  metrics,
		timeout:  10 * time.Second,
	}
}

// Register subscribes the server to every command subject
func (s *NATSCommandServer) Register(client *NATSClient) error {
	return client.Respond(CommandSubjectPrefix+"*", commandQueue, func(subject string, data []byte) []byte {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		op := strings.TrimPrefix(subject, CommandSubjectPrefix)
		reply, err := json.Marshal(s.Dispatch(ctx, op, data))
		if err != nil {
			log.WithError(err).Error("Failed to marshal command response")
			return []byte(`{"success":false,"error":"internal error"}`)
		}
		return reply
	})
}

// Dispatch decodes a request body, runs the named operation and builds the reply
func (s *NATSCommandServer) Dispatch(ctx context.Context, op string, data []byte) (resp CommandResponse) {
	if s.metrics != nil {
		start := time.Now()
		defer func() {
			label := op
			if resp.Code == codeUnknownOperation {
				label = unknownOpLabel
			}
			s.metrics.Observe(label, resp.Code, time.Since(start))
		}()
	}

	result, err := s.run(ctx, op, data)
	if err != nil {
		code := responseCode(err)
		fields := log.Fields{
			"op":    op,
			"code":  code,
			"error": err,
		}
		if code == "Internal" {
			log.WithFields(fields).Error("Command failed")
		} else {
			log.WithFields(fields).Info("Command rejected")
		}
		return CommandResponse{
			Error:     err.Error(),
			Code:      code,
			Retryable: entities.IsRetryable(err),
		}
	}
	return CommandResponse{Success: true, Data: result}
}

func (s *NATSCommandServer) run(ctx context.Context, op string, data []byte) (interface{}, error) {
	switch op {
	case OpInitialize:
		var req dto.InitializeRequest
		if err := decode(data, &req); err != nil {
			return nil, err
		}
		return s.commands.Initialize(ctx, req)
	case OpInitializeCollection:
		var req dto.InitializeCollectionRequest
		if err := decode(data, &req); err != nil {
			return nil, err
		}
		return s.commands.InitializeCollection(ctx, req)
	case OpBuyTicket:
		var req dto.BuyTicketRequest
		if err := decode(data, &req); err != nil {
			return nil, err
		}
		return s.commands.BuyTicket(ctx, req)
	case OpCommitAWinner:
		var req dto.CommitAWinnerRequest
		if err := decode(data, &req); err != nil {
			return nil, err
		}
		return s.commands.CommitAWinner(ctx, req)
	case OpChooseAWinner:
		var req dto.ChooseAWinnerRequest
		if err := decode(data, &req); err != nil {
			return nil, err
		}
		return s.commands.ChooseAWinner(ctx, req)
	case OpClaimPrize:
		var req dto.ClaimPrizeRequest
		if err := decode(data, &req); err != nil {
			return nil, err
		}
		return s.commands.ClaimPrize(ctx, req)
	case OpTransferTicket:
		var req dto.TransferTicketRequest
		if err := decode(data, &req); err != nil {
			return nil, err
		}
		return s.commands.TransferTicket(ctx, req)
	case OpGet:
		var req lotteryQuery
		if err := decode(data, &req); err != nil {
			return nil, err
		}
		return s.commands.GetLottery(ctx, req.LotteryID)
	case OpTickets:
		var req lotteryQuery
		if err := decode(data, &req); err != nil {
			return nil, err
		}
		return s.commands.ListTickets(ctx, req.LotteryID)
	case OpParticipants:
		var req lotteryQuery
		if err := decode(data, &req); err != nil {
			return nil, err
		}
		return s.commands.Participants(ctx, req.LotteryID)
	case OpBalance:
		var req balanceQuery
		if err := decode(data, &req); err != nil {
			return nil, err
		}
		return s.commands.Balance(ctx, req.Account)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownOperation, op)
	}
}

func decode(data []byte, v interface{}) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return nil
}

func responseCode(err error) string {
	switch {
	case errors.Is(err, ErrBadRequest):
		return "BadRequest"
	case errors.Is(err, ErrUnknownOperation):
		return codeUnknownOperation
	}
	return entities.ErrorCode(err)
}
