package broker

import (
	"testing"

	"github.com/AnDev002/G-Mall-BE-sub001/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageAttempt(t *testing.T) {
	tests := []struct {
		name    string
		headers []kafka.Header
		want    int
	}{
		{"first delivery has no header", nil, 1},
		{"requeued delivery", []kafka.Header{{Key: "x-attempt", Value: []byte("3")}}, 3},
		{"garbage header defaults to 1", []kafka.Header{{Key: "x-attempt", Value: []byte("nope")}}, 1},
		{"zero attempt defaults to 1", []kafka.Header{{Key: "x-attempt", Value: []byte("0")}}, 1},
		{"unrelated headers ignored", []kafka.Header{{Key: "x-other", Value: []byte("7")}}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MessageAttempt(kafka.Message{Headers: tt.headers}))
		})
	}
}

func TestDecodeJob(t *testing.T) {
	msg := kafka.Message{
		Value: []byte(`{"order_id":"abc","buyer_id":7,"items":[{"product_id":1,"quantity":2}],"payment_method":"COD","direct_purchase":true}`),
		Headers: []kafka.Header{
			{Key: "x-attempt", Value: []byte("2")},
		},
	}

	job, attempt, err := DecodeJob(msg)
	require.NoError(t, err)
	assert.Equal(t, "abc", job.OrderID)
	assert.Equal(t, int64(7), job.BuyerID)
	assert.True(t, job.DirectPurchase)
	require.Len(t, job.Items, 1)
	assert.Equal(t, models.JobItem{ProductID: 1, Quantity: 2}, job.Items[0])
	assert.Equal(t, 2, attempt)
}

func TestDecodeJobRejectsGarbage(t *testing.T) {
	_, _, err := DecodeJob(kafka.Message{Value: []byte("not json")})
	assert.Error(t, err)
}

func TestNewOrderJob(t *testing.T) {
	items := []models.JobItem{{ProductID: 5, Quantity: 1}}

	a := NewOrderJob(42, items, "CARD", false)
	b := NewOrderJob(42, items, "CARD", false)

	assert.NotEmpty(t, a.OrderID)
	assert.NotEqual(t, a.OrderID, b.OrderID)
	assert.Equal(t, int64(42), a.BuyerID)
	assert.False(t, a.EnqueuedAt.IsZero())
}
