package bot_engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"supportdesk/internal/models"
	"supportdesk/internal/repository"

	"go.uber.org/zap"
)

// Reply shapes for the billing intake conversation. The wording mirrors what
// the bot has always said; clients key off these strings.
const (
	billingDetailsPrompt = `Please provide the following details to create your billing record: billing address, amount, status, description (separated by commas). Example: "address, 100, pending, description".`
	billingReprompt      = "Please provide the correct details: billing address, amount, status, description (separated by commas)."
	alreadyProcessed     = "This billing record has already been processed."
	billingDuplicate     = "A billing record with the same details already exists."
	billingSuccess       = "Your bill has been created successfully!"
	locationRequest      = "I couldn't determine your region automatically. Could you please enable your location services?"

	// ActionRequestLocation tells the client to prompt the user for
	// location access.
	ActionRequestLocation = "requestLocation"
)

// ErrInvalidRequest marks user-correctable input problems; the handler maps
// it to a 400.
var ErrInvalidRequest = errors.New("invalid request")

// Reply is the single response shape every conversation turn produces,
// successful or not.
type Reply struct {
	Response string          `json:"response"`
	Action   string          `json:"action,omitempty"`
	Ticket   *models.Ticket  `json:"ticket,omitempty"`
	Billing  *models.Billing `json:"billing,omitempty"`
}

// TrainingStore is the canned-response knowledge base the dispatcher falls
// back to.
type TrainingStore interface {
	Lookup(message string) (string, bool, error)
	RecordUnknown(userID, message string) (string, error)
}

// SessionStore tracks per-user conversation state and the processed-message
// dedup cache.
type SessionStore interface {
	AwaitingBillingDetails(userID string) bool
	PendingTriggerMessage(userID string) string
	BeginBillingIntake(userID, triggerMessage string)
	EndBillingIntake(userID string)
	IsProcessed(userID, message string) bool
	MarkProcessed(userID, message string)
}

// RegionResolver turns coordinates into a human-readable region string.
type RegionResolver interface {
	RegionFromCoordinates(ctx context.Context, latitude, longitude float64) (string, error)
}

// UnknownPublisher is the notification side-channel for messages the bot had
// no answer for.
type UnknownPublisher interface {
	PublishUnknownMessage(ctx context.Context, record models.UnknownMessage) error
}

// Engine is the chat dispatcher plus the billing-intake workflow: it receives
// a message and a user, consults the session and the intent classifier, and
// routes to the billing workflow, the network lookup, or the training-store
// fallback.
type Engine struct {
	training       TrainingStore
	sessions       SessionStore
	ticketRepo     repository.TicketRepository
	billingRepo    repository.BillingRepository
	geocoder       RegionResolver
	publisher      UnknownPublisher
	logger         *zap.Logger
	geocodeTimeout time.Duration
}

// NewEngine creates the chat dispatcher. geocoder and publisher may be nil;
// the corresponding branches then degrade gracefully.
func NewEngine(
	training TrainingStore,
	sessions SessionStore,
	ticketRepo repository.TicketRepository,
	billingRepo repository.BillingRepository,
	geocoder RegionResolver,
	publisher UnknownPublisher,
	logger *zap.Logger,
	geocodeTimeout time.Duration,
) *Engine {
	if geocodeTimeout <= 0 {
		geocodeTimeout = 10 * time.Second
	}
	return &Engine{
		training:       training,
		sessions:       sessions,
		ticketRepo:     ticketRepo,
		billingRepo:    billingRepo,
		geocoder:       geocoder,
		publisher:      publisher,
		logger:         logger,
		geocodeTimeout: geocodeTimeout,
	}
}

// HandleMessage runs one conversation turn. Validation errors come back as
// ErrInvalidRequest; storage failures are wrapped and surfaced, but every
// failure path first returns the session to idle so the user is never stuck
// awaiting details.
func (e *Engine) HandleMessage(ctx context.Context, userID, message string, latitude, longitude *float64) (*Reply, error) {
	if strings.TrimSpace(message) == "" {
		return nil, fmt.Errorf("%w: message is required", ErrInvalidRequest)
	}
	if userID == "" {
		return nil, fmt.Errorf("%w: user ID is missing", ErrInvalidRequest)
	}

	normalized := strings.ToLower(strings.TrimSpace(message))
	e.logger.Debug("Processing message", zap.String("user_id", userID), zap.String("message", normalized))

	switch ClassifyIntent(normalized, e.sessions.AwaitingBillingDetails(userID)) {
	case IntentAwaitingBillingFollowup:
		return e.handleBillingDetails(userID, normalized)
	case IntentBillingTrigger:
		return e.handleBillingTrigger(userID, normalized), nil
	case IntentNetworkStatus:
		return e.handleNetworkStatus(ctx, latitude, longitude), nil
	default:
		return e.handleLookup(ctx, userID, message, normalized)
	}
}

// handleBillingTrigger is the IDLE -> AWAITING_DETAILS transition. Already
// processed triggers self-loop with no side effects.
func (e *Engine) handleBillingTrigger(userID, normalized string) *Reply {
	if e.sessions.IsProcessed(userID, normalized) {
		e.logger.Info("Billing trigger already processed", zap.String("user_id", userID))
		return &Reply{Response: alreadyProcessed}
	}

	e.sessions.BeginBillingIntake(userID, normalized)
	return &Reply{Response: billingDetailsPrompt}
}

// handleBillingDetails is the AWAITING_DETAILS transition: parse the
// comma-separated follow-up, validate, dedup against existing open tickets,
// then create the ticket/billing pair in one transaction.
func (e *Engine) handleBillingDetails(userID, normalized string) (*Reply, error) {
	fields := strings.Split(normalized, ",")
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	// Wrong token count re-prompts and stays awaiting: the user gets
	// another attempt without re-triggering with "bill".
	if len(fields) != 4 {
		e.logger.Info("Malformed billing details", zap.String("user_id", userID), zap.Int("fields", len(fields)))
		return &Reply{Response: billingReprompt}, nil
	}

	billingAddress, amountText, status, description := fields[0], fields[1], fields[2], fields[3]

	if violations := validateBillingDetails(billingAddress, amountText, status, description); len(violations) > 0 {
		e.logger.Info("Invalid billing details",
			zap.String("user_id", userID),
			zap.Strings("violations", violations))
		return &Reply{Response: "Unable to create the billing record: " + strings.Join(violations, "; ") + ". " + billingReprompt}, nil
	}
	amount, _ := strconv.ParseFloat(amountText, 64)

	ticketDescription := "Billing record created: " + description

	existing, err := e.ticketRepo.FindOpenTicketByDescription(userID, ticketDescription)
	if err != nil {
		e.sessions.EndBillingIntake(userID)
		return nil, fmt.Errorf("failed to check for existing ticket: %w", err)
	}
	if existing != nil {
		// Already handled, not an error: hand back the existing ticket
		// and go idle without creating a second pair.
		e.logger.Info("Duplicate billing details, returning existing ticket",
			zap.String("user_id", userID),
			zap.String("ticket_id", existing.ID))
		e.sessions.EndBillingIntake(userID)
		return &Reply{Response: billingDuplicate, Ticket: existing}, nil
	}

	ticket := &models.Ticket{
		UserID:      userID,
		Description: ticketDescription,
		Status:      models.TicketStatusOpen,
	}
	billing := &models.Billing{
		UserID:         userID,
		BillingAddress: billingAddress,
		Amount:         amount,
		Status:         status,
		Description:    description,
	}

	if err := e.billingRepo.CreateWithTicket(ticket, billing); err != nil {
		e.sessions.EndBillingIntake(userID)
		return nil, fmt.Errorf("failed to create billing record: %w", err)
	}

	trigger := e.sessions.PendingTriggerMessage(userID)
	if trigger != "" {
		e.sessions.MarkProcessed(userID, trigger)
	}
	e.sessions.MarkProcessed(userID, normalized)
	e.sessions.EndBillingIntake(userID)

	e.logger.Info("Billing record and ticket created",
		zap.String("user_id", userID),
		zap.String("ticket_id", ticket.ID),
		zap.String("billing_id", billing.ID))

	return &Reply{Response: billingSuccess, Ticket: ticket, Billing: billing}, nil
}

func (e *Engine) handleNetworkStatus(ctx context.Context, latitude, longitude *float64) *Reply {
	if latitude == nil || longitude == nil || e.geocoder == nil {
		return &Reply{Response: locationRequest, Action: ActionRequestLocation}
	}

	geocodeCtx, cancel := context.WithTimeout(ctx, e.geocodeTimeout)
	defer cancel()

	region, err := e.geocoder.RegionFromCoordinates(geocodeCtx, *latitude, *longitude)
	if err != nil {
		// Geocoding never fails the turn; unresolvable means unknown.
		e.logger.Warn("Failed to resolve region", zap.Error(err))
		region = "Unknown Region"
	}

	return &Reply{Response: fmt.Sprintf("The network status for your region (%s) is: all systems operational.", region)}
}

func (e *Engine) handleLookup(ctx context.Context, userID, message, normalized string) (*Reply, error) {
	response, found, err := e.training.Lookup(normalized)
	if err != nil {
		return nil, fmt.Errorf("failed to look up training data: %w", err)
	}
	if found {
		return &Reply{Response: response}, nil
	}

	response, err = e.training.RecordUnknown(userID, message)
	if err != nil {
		return nil, fmt.Errorf("failed to record unknown message: %w", err)
	}

	if e.publisher != nil {
		record := models.UnknownMessage{UserID: userID, Message: message, Timestamp: time.Now().UTC()}
		if err := e.publisher.PublishUnknownMessage(ctx, record); err != nil {
			// Notification is best-effort; the reply still goes out.
			e.logger.Warn("Failed to publish unknown message", zap.Error(err))
		}
	}

	return &Reply{Response: response}, nil
}

func validateBillingDetails(billingAddress, amountText, status, description string) []string {
	var violations []string
	if billingAddress == "" {
		violations = append(violations, "billing address is required")
	}
	if amountText == "" {
		violations = append(violations, "amount is required")
	} else if _, err := strconv.ParseFloat(amountText, 64); err != nil {
		violations = append(violations, fmt.Sprintf("amount %q is not a number", amountText))
	}
	if status == "" {
		violations = append(violations, "status is required")
	} else if !models.ValidBillingStatus(status) {
		violations = append(violations, fmt.Sprintf("status must be one of: %s", strings.Join(models.BillingStatuses(), ", ")))
	}
	if description == "" {
		violations = append(violations, "description is required")
	}
	return violations
}
