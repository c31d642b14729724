package bot_engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"supportdesk/internal/models"
)

type mockTraining struct {
	responses map[string]string
	recorded  []models.UnknownMessage
	lookupErr error
	recordErr error
}

func (m *mockTraining) Lookup(message string) (string, bool, error) {
	if m.lookupErr != nil {
		return "", false, m.lookupErr
	}
	resp, ok := m.responses[message]
	return resp, ok, nil
}

func (m *mockTraining) RecordUnknown(userID, message string) (string, error) {
	if m.recordErr != nil {
		return "", m.recordErr
	}
	m.recorded = append(m.recorded, models.UnknownMessage{UserID: userID, Message: message})
	return "I'm sorry, I don't have an answer to that.", nil
}

type mockSessions struct {
	awaiting  map[string]bool
	triggers  map[string]string
	processed map[string]bool
	perUser   bool
}

func newMockSessions() *mockSessions {
	return &mockSessions{
		awaiting:  make(map[string]bool),
		triggers:  make(map[string]string),
		processed: make(map[string]bool),
	}
}

func (m *mockSessions) key(userID, message string) string {
	normalized := strings.ToLower(strings.TrimSpace(message))
	if m.perUser {
		return userID + "|" + normalized
	}
	return normalized
}

func (m *mockSessions) AwaitingBillingDetails(userID string) bool { return m.awaiting[userID] }
func (m *mockSessions) PendingTriggerMessage(userID string) string {
	return m.triggers[userID]
}
func (m *mockSessions) BeginBillingIntake(userID, trigger string) {
	m.awaiting[userID] = true
	m.triggers[userID] = trigger
}
func (m *mockSessions) EndBillingIntake(userID string) {
	m.awaiting[userID] = false
	delete(m.triggers, userID)
}
func (m *mockSessions) IsProcessed(userID, message string) bool {
	return m.processed[m.key(userID, message)]
}
func (m *mockSessions) MarkProcessed(userID, message string) {
	m.processed[m.key(userID, message)] = true
}

type mockTicketRepo struct {
	existing  *models.Ticket
	findErr   error
	created   []*models.Ticket
	createErr error
}

func (m *mockTicketRepo) CreateTicket(ticket *models.Ticket) error {
	if m.createErr != nil {
		return m.createErr
	}
	ticket.ID = "ticket-1"
	m.created = append(m.created, ticket)
	return nil
}
func (m *mockTicketRepo) GetTicketByID(string) (*models.Ticket, error)          { return nil, nil }
func (m *mockTicketRepo) GetAllTickets() ([]*models.Ticket, error)              { return nil, nil }
func (m *mockTicketRepo) GetTicketsByUserID(string) ([]*models.Ticket, error)   { return nil, nil }
func (m *mockTicketRepo) UpdateTicket(*models.Ticket) error                     { return nil }
func (m *mockTicketRepo) DeleteTicket(string) error                             { return nil }
func (m *mockTicketRepo) FindOpenTicketByDescription(userID, description string) (*models.Ticket, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	return m.existing, nil
}

type mockBillingRepo struct {
	createdTickets []*models.Ticket
	createdBilling []*models.Billing
	createErr      error
}

func (m *mockBillingRepo) CreateBilling(*models.Billing) error { return nil }
func (m *mockBillingRepo) GetBillingByID(string) (*models.Billing, error) {
	return nil, nil
}
func (m *mockBillingRepo) GetBillingByUserID(string) (*models.Billing, error) {
	return nil, nil
}
func (m *mockBillingRepo) UpdateStatus(string, string) (*models.Billing, error) {
	return nil, nil
}
func (m *mockBillingRepo) UpdateBillingAddress(string, string) (*models.Billing, error) {
	return nil, nil
}
func (m *mockBillingRepo) DeleteBilling(string) error { return nil }
func (m *mockBillingRepo) CreateWithTicket(ticket *models.Ticket, billing *models.Billing) error {
	if m.createErr != nil {
		return m.createErr
	}
	ticket.ID = "ticket-1"
	billing.ID = "billing-1"
	billing.TicketID = &ticket.ID
	m.createdTickets = append(m.createdTickets, ticket)
	m.createdBilling = append(m.createdBilling, billing)
	return nil
}

type mockGeocoder struct {
	region string
	err    error
}

func (m *mockGeocoder) RegionFromCoordinates(context.Context, float64, float64) (string, error) {
	return m.region, m.err
}

type mockPublisher struct {
	published []models.UnknownMessage
	err       error
}

func (m *mockPublisher) PublishUnknownMessage(_ context.Context, record models.UnknownMessage) error {
	if m.err != nil {
		return m.err
	}
	m.published = append(m.published, record)
	return nil
}

type engineFixture struct {
	engine    *Engine
	training  *mockTraining
	sessions  *mockSessions
	tickets   *mockTicketRepo
	billing   *mockBillingRepo
	geocoder  *mockGeocoder
	publisher *mockPublisher
}

func newFixture() *engineFixture {
	f := &engineFixture{
		training:  &mockTraining{responses: map[string]string{}},
		sessions:  newMockSessions(),
		tickets:   &mockTicketRepo{},
		billing:   &mockBillingRepo{},
		geocoder:  &mockGeocoder{region: "Springfield, USA"},
		publisher: &mockPublisher{},
	}
	f.engine = NewEngine(f.training, f.sessions, f.tickets, f.billing,
		f.geocoder, f.publisher, zap.NewNop(), time.Second)
	return f
}

func ptr(v float64) *float64 { return &v }

func TestHandleMessageValidation(t *testing.T) {
	f := newFixture()

	_, err := f.engine.HandleMessage(context.Background(), "user-1", "   ", nil, nil)
	require.ErrorIs(t, err, ErrInvalidRequest)

	_, err = f.engine.HandleMessage(context.Background(), "", "hello", nil, nil)
	require.ErrorIs(t, err, ErrInvalidRequest)
}

func TestBillingTriggerPromptsForDetails(t *testing.T) {
	f := newFixture()

	reply, err := f.engine.HandleMessage(context.Background(), "user-1", "I need help with my BILL", nil, nil)
	require.NoError(t, err)
	require.Contains(t, reply.Response, "billing address, amount, status, description")
	require.True(t, f.sessions.AwaitingBillingDetails("user-1"))
	require.Empty(t, f.sessions.processed, "trigger alone must not mark anything processed")
}

func TestBillingTriggerAlreadyProcessed(t *testing.T) {
	f := newFixture()
	f.sessions.MarkProcessed("user-1", "i need help with my bill")

	reply, err := f.engine.HandleMessage(context.Background(), "user-1", "I need help with my bill", nil, nil)
	require.NoError(t, err)
	require.Equal(t, "This billing record has already been processed.", reply.Response)
	require.False(t, f.sessions.AwaitingBillingDetails("user-1"))
	require.Empty(t, f.billing.createdTickets)
}

func TestBillingRoundTrip(t *testing.T) {
	f := newFixture()

	_, err := f.engine.HandleMessage(context.Background(), "user-1", "I want to pay my bill", nil, nil)
	require.NoError(t, err)
	require.True(t, f.sessions.AwaitingBillingDetails("user-1"))

	reply, err := f.engine.HandleMessage(context.Background(), "user-1", "123 Main St, 100, pending, printer broken", nil, nil)
	require.NoError(t, err)
	require.Equal(t, "Your bill has been created successfully!", reply.Response)

	require.Len(t, f.billing.createdTickets, 1)
	ticket := f.billing.createdTickets[0]
	require.Equal(t, "user-1", ticket.UserID)
	require.Equal(t, models.TicketStatusOpen, ticket.Status)
	require.Equal(t, "Billing record created: printer broken", ticket.Description)

	require.Len(t, f.billing.createdBilling, 1)
	billing := f.billing.createdBilling[0]
	require.Equal(t, "123 main st", billing.BillingAddress)
	require.Equal(t, float64(100), billing.Amount)
	require.Equal(t, models.BillingStatusPending, billing.Status)
	require.Equal(t, "printer broken", billing.Description)
	require.NotNil(t, billing.TicketID)
	require.Equal(t, ticket.ID, *billing.TicketID)

	require.NotNil(t, reply.Ticket)
	require.NotNil(t, reply.Billing)
	require.False(t, f.sessions.AwaitingBillingDetails("user-1"))
	require.True(t, f.sessions.IsProcessed("user-1", "123 main st, 100, pending, printer broken"))
	require.True(t, f.sessions.IsProcessed("user-1", "i want to pay my bill"))
}

func TestBillingTriggerIdempotentAfterSuccess(t *testing.T) {
	f := newFixture()

	_, err := f.engine.HandleMessage(context.Background(), "user-1", "I want to pay my bill", nil, nil)
	require.NoError(t, err)
	_, err = f.engine.HandleMessage(context.Background(), "user-1", "123 Main St, 100, pending, printer broken", nil, nil)
	require.NoError(t, err)

	reply, err := f.engine.HandleMessage(context.Background(), "user-1", "I want to pay my bill", nil, nil)
	require.NoError(t, err)
	require.Equal(t, "This billing record has already been processed.", reply.Response)
	require.False(t, f.sessions.AwaitingBillingDetails("user-1"))
	require.Len(t, f.billing.createdTickets, 1, "no second ticket/billing pair")
}

func TestBillingMalformedFollowupReprompts(t *testing.T) {
	f := newFixture()
	f.sessions.BeginBillingIntake("user-1", "bill please")

	reply, err := f.engine.HandleMessage(context.Background(), "user-1", "only,two", nil, nil)
	require.NoError(t, err)
	require.Contains(t, reply.Response, "Please provide the correct details")
	require.True(t, f.sessions.AwaitingBillingDetails("user-1"), "malformed input keeps the session awaiting")
	require.Empty(t, f.billing.createdTickets)
	require.Empty(t, f.billing.createdBilling)
}

func TestBillingInvalidStatusRejected(t *testing.T) {
	f := newFixture()
	f.sessions.BeginBillingIntake("user-1", "bill please")

	reply, err := f.engine.HandleMessage(context.Background(), "user-1", "123 main st, 100, bogus, broken", nil, nil)
	require.NoError(t, err)
	require.Contains(t, reply.Response, "status must be one of: paid, pending, failed")
	require.True(t, f.sessions.AwaitingBillingDetails("user-1"))
	require.Empty(t, f.billing.createdTickets)
}

func TestBillingNonNumericAmountRejected(t *testing.T) {
	f := newFixture()
	f.sessions.BeginBillingIntake("user-1", "bill please")

	reply, err := f.engine.HandleMessage(context.Background(), "user-1", "123 main st, lots, pending, broken", nil, nil)
	require.NoError(t, err)
	require.Contains(t, reply.Response, "is not a number")
	require.Empty(t, f.billing.createdTickets)
}

func TestBillingDuplicateReturnsExistingTicket(t *testing.T) {
	f := newFixture()
	existing := &models.Ticket{
		ID:          "existing-ticket",
		UserID:      "user-1",
		Description: "Billing record created: printer broken",
		Status:      models.TicketStatusOpen,
	}
	f.tickets.existing = existing
	f.sessions.BeginBillingIntake("user-1", "bill please")

	reply, err := f.engine.HandleMessage(context.Background(), "user-1", "123 main st, 100, pending, printer broken", nil, nil)
	require.NoError(t, err)
	require.Equal(t, "A billing record with the same details already exists.", reply.Response)
	require.Equal(t, existing, reply.Ticket)
	require.Empty(t, f.billing.createdTickets, "duplicate must not create a second pair")
	require.False(t, f.sessions.AwaitingBillingDetails("user-1"))
}

func TestBillingStorageFailureClearsSession(t *testing.T) {
	f := newFixture()
	f.billing.createErr = errors.New("connection refused")
	f.sessions.BeginBillingIntake("user-1", "bill please")

	_, err := f.engine.HandleMessage(context.Background(), "user-1", "123 main st, 100, pending, broken", nil, nil)
	require.Error(t, err)
	require.False(t, f.sessions.AwaitingBillingDetails("user-1"), "error path must not leave the user stuck awaiting")
	require.False(t, f.sessions.IsProcessed("user-1", "123 main st, 100, pending, broken"))
}

func TestBillingDedupCheckFailureClearsSession(t *testing.T) {
	f := newFixture()
	f.tickets.findErr = errors.New("connection refused")
	f.sessions.BeginBillingIntake("user-1", "bill please")

	_, err := f.engine.HandleMessage(context.Background(), "user-1", "123 main st, 100, pending, broken", nil, nil)
	require.Error(t, err)
	require.False(t, f.sessions.AwaitingBillingDetails("user-1"))
}

func TestSessionsAreIsolatedPerUser(t *testing.T) {
	f := newFixture()

	_, err := f.engine.HandleMessage(context.Background(), "user-a", "pay my bill", nil, nil)
	require.NoError(t, err)
	require.True(t, f.sessions.AwaitingBillingDetails("user-a"))

	// Another user's plain message must not be consumed as a follow-up.
	reply, err := f.engine.HandleMessage(context.Background(), "user-b", "what are your opening hours", nil, nil)
	require.NoError(t, err)
	require.Equal(t, "I'm sorry, I don't have an answer to that.", reply.Response)
	require.True(t, f.sessions.AwaitingBillingDetails("user-a"), "user A is still mid-intake")
	require.Empty(t, f.billing.createdTickets)
}

func TestNetworkStatusWithCoordinates(t *testing.T) {
	f := newFixture()

	reply, err := f.engine.HandleMessage(context.Background(), "user-1", "is the network down?", ptr(40.7), ptr(-74.0))
	require.NoError(t, err)
	require.Contains(t, reply.Response, "(Springfield, USA)")
	require.Empty(t, reply.Action)
}

func TestNetworkStatusUnresolvableFallsBack(t *testing.T) {
	f := newFixture()
	f.geocoder.region = ""
	f.geocoder.err = errors.New("timeout")

	reply, err := f.engine.HandleMessage(context.Background(), "user-1", "network status please", ptr(0), ptr(0))
	require.NoError(t, err)
	require.Contains(t, reply.Response, "(Unknown Region)")
}

func TestNetworkStatusWithoutCoordinates(t *testing.T) {
	f := newFixture()

	reply, err := f.engine.HandleMessage(context.Background(), "user-1", "network status", nil, nil)
	require.NoError(t, err)
	require.Equal(t, ActionRequestLocation, reply.Action)
	require.Contains(t, reply.Response, "location services")
}

func TestLookupHit(t *testing.T) {
	f := newFixture()
	f.training.responses["what are your opening hours"] = "We are open 9-5."

	reply, err := f.engine.HandleMessage(context.Background(), "user-1", "What are your opening hours", nil, nil)
	require.NoError(t, err)
	require.Equal(t, "We are open 9-5.", reply.Response)
	require.Empty(t, f.training.recorded)
	require.Empty(t, f.publisher.published)
}

func TestLookupMissRecordsAndPublishes(t *testing.T) {
	f := newFixture()

	reply, err := f.engine.HandleMessage(context.Background(), "user-1", "Do you sell printers?", nil, nil)
	require.NoError(t, err)
	require.Equal(t, "I'm sorry, I don't have an answer to that.", reply.Response)
	require.Len(t, f.training.recorded, 1)
	require.Equal(t, "Do you sell printers?", f.training.recorded[0].Message)
	require.Len(t, f.publisher.published, 1)
	require.Equal(t, "user-1", f.publisher.published[0].UserID)
}

func TestLookupMissPublishFailureStillReplies(t *testing.T) {
	f := newFixture()
	f.publisher.err = errors.New("broker unreachable")

	reply, err := f.engine.HandleMessage(context.Background(), "user-1", "Do you sell printers?", nil, nil)
	require.NoError(t, err)
	require.Equal(t, "I'm sorry, I don't have an answer to that.", reply.Response)
}

func TestFollowupContainingBillIsStillFollowup(t *testing.T) {
	f := newFixture()
	f.sessions.BeginBillingIntake("user-1", "bill please")

	// The word "bill" in the follow-up must not restart the workflow.
	reply, err := f.engine.HandleMessage(context.Background(), "user-1", "12 bill ave, 50, paid, new bill", nil, nil)
	require.NoError(t, err)
	require.Equal(t, "Your bill has been created successfully!", reply.Response)
	require.Len(t, f.billing.createdTickets, 1)
}
