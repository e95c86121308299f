package domain

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	allowed := [][2]OrderStatus{
		{OrderPendingPayment, OrderPaid},
		{OrderPendingPayment, OrderCancelled},
		{OrderPaid, OrderInProgress},
		{OrderPaid, OrderCancelled},
		{OrderInProgress, OrderCompleted},
		{OrderInProgress, OrderCancelled},
	}
	for _, pair := range allowed {
		assert.True(t, CanTransition(pair[0], pair[1]), "%s -> %s", pair[0], pair[1])
	}

	denied := [][2]OrderStatus{
		{OrderPendingPayment, OrderInProgress},
		{OrderPendingPayment, OrderCompleted},
		{OrderPaid, OrderCompleted},
		{OrderInProgress, OrderPaid},
		{OrderCompleted, OrderCancelled},
		{OrderCompleted, OrderInProgress},
		{OrderCancelled, OrderPendingPayment},
		{OrderCancelled, OrderCancelled},
	}
	for _, pair := range denied {
		assert.False(t, CanTransition(pair[0], pair[1]), "%s -> %s", pair[0], pair[1])
	}
}

func TestTerminal(t *testing.T) {
	assert.True(t, OrderCompleted.Terminal())
	assert.True(t, OrderCancelled.Terminal())
	assert.False(t, OrderPendingPayment.Terminal())
	assert.False(t, OrderPaid.Terminal())
	assert.False(t, OrderInProgress.Terminal())
}

func TestInvalidTransitionError(t *testing.T) {
	err := &InvalidTransitionError{From: OrderPendingPayment, To: OrderCompleted}
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Contains(t, err.Error(), "pending_payment")
	assert.Contains(t, err.Error(), "completed")

	var target *InvalidTransitionError
	assert.True(t, errors.As(error(err), &target))
}

func TestParsePriority(t *testing.T) {
	p, ok := ParsePriority("")
	assert.True(t, ok)
	assert.Equal(t, PriorityRoutine, p)

	p, ok = ParsePriority("stat")
	assert.True(t, ok)
	assert.Equal(t, PriorityStat, p)

	_, ok = ParsePriority("whenever")
	assert.False(t, ok)
}

func TestParseStatus(t *testing.T) {
	s, ok := ParseStatus("in_progress")
	assert.True(t, ok)
	assert.Equal(t, OrderInProgress, s)

	s, ok = ParseStatus("pending_payment")
	assert.True(t, ok)
	assert.Equal(t, OrderPendingPayment, s)

	_, ok = ParseStatus("done")
	assert.False(t, ok)
	_, ok = ParseStatus("")
	assert.False(t, ok)
}

func TestCreateOrderRequestDecodesQuotedIDs(t *testing.T) {
	body := `{
		"patient_id": "1930000000000000001",
		"doctor_id": "1930000000000000002",
		"priority": "urgent",
		"tests": [{"test_id": "1930000000000000003", "quantity": 2}]
	}`

	var req CreateOrderRequest
	require.NoError(t, json.Unmarshal([]byte(body), &req))
	assert.Equal(t, "1930000000000000001", req.PatientID.String())
	assert.Equal(t, "1930000000000000002", req.DoctorID.String())
	assert.Len(t, req.Tests, 1)
	assert.Equal(t, "1930000000000000003", req.Tests[0].TestID.String())
	assert.Equal(t, int32(2), req.Tests[0].Quantity)

	var result TestResultRequest
	require.NoError(t, json.Unmarshal(
		[]byte(`{"order_test_id":"1930000000000000004","status":"completed","result":"WBC 6.1"}`),
		&result,
	))
	assert.Equal(t, "1930000000000000004", result.OrderTestID.String())
}
