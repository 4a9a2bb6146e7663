package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"barbershop-booking-backend/config"
	"barbershop-booking-backend/internal/booking"
	"barbershop-booking-backend/internal/chat"
	"barbershop-booking-backend/internal/model"
	"barbershop-booking-backend/internal/store"
)

// chatScript makes the stubbed completion endpoint return canned replies
// in order.
type chatScript struct {
	replies []string
	calls   int
}

func (s *chatScript) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reply := ""
		if s.calls < len(s.replies) {
			reply = s.replies[s.calls]
		}
		s.calls++
		resp := openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: reply}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}
}

func newTestRouter(t *testing.T, script *chatScript) (*gin.Engine, store.Store) {
	gin.SetMode(gin.TestMode)

	gormDB, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, gormDB.AutoMigrate(&model.Slot{}, &model.Booking{}, &model.PushSubscription{}))

	st := store.NewGormStore(gormDB)
	svc := booking.NewService(st, 10*time.Minute)

	var chatClient *chat.Client
	if script != nil {
		upstream := httptest.NewServer(script.handler(t))
		t.Cleanup(upstream.Close)
		chatClient = chat.NewClient(config.ChatConfig{
			APIKey: "test", Model: "gpt-4o-mini", BaseURL: upstream.URL + "/v1",
		})
	}

	handler := NewHandler(st, svc, nil, nil, chatClient, nil)
	cfg := &config.ServerConfig{RateLimitPerSec: 1000, RateLimitBurst: 1000}
	return NewRouter(cfg, handler), st
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Buffer
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewBuffer(encoded)
	} else {
		reader = bytes.NewBuffer(nil)
	}
	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestSlotEndpoints(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	// Add a slot.
	w := doJSON(t, router, http.MethodPost, "/api/slots", gin.H{"date": "2030-06-01", "time": "09:00"})
	assert.Equal(t, http.StatusOK, w.Code)

	// Duplicate is a conflict.
	w = doJSON(t, router, http.MethodPost, "/api/slots", gin.H{"date": "2030-06-01", "time": "09:00"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Slot already exists"}`, w.Body.String())

	// Midnight is no time at all.
	w = doJSON(t, router, http.MethodPost, "/api/slots", gin.H{"date": "2030-06-01", "time": "00:00"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Listing includes the slot.
	w = doJSON(t, router, http.MethodGet, "/api/slots", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var slots map[string][]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &slots))
	assert.Equal(t, []string{"09:00"}, slots["2030-06-01"])

	// Delete it, then deleting again is a 404.
	w = doJSON(t, router, http.MethodDelete, "/api/slots?date=2030-06-01&time=09:00", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = doJSON(t, router, http.MethodDelete, "/api/slots?date=2030-06-01&time=09:00", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBookingEndpoints(t *testing.T) {
	router, st := newTestRouter(t, nil)
	ctx := context.Background()

	require.NoError(t, st.CreateSlot(ctx, &model.Slot{Date: "2030-06-01", Time: "09:00", Available: false}))
	require.NoError(t, st.CreateBooking(ctx, &model.Booking{
		ID: "b-1", CustomerName: "Ada", Service: "Haircut",
		Date: "2030-06-01", Time: "09:00",
		Status: model.StatusPending, CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}))

	w := doJSON(t, router, http.MethodGet, "/api/bookings", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	var views []booking.BookingView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &views))
	require.Len(t, views, 1)
	assert.Equal(t, "Ada", views[0].CustomerName)

	w = doJSON(t, router, http.MethodPost, "/api/bookings/b-1/paid", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/bookings/b-1/cancel", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"cancelled","booking_id":"b-1"}`, w.Body.String())

	// The slot is free again after cancellation.
	slot, err := st.GetSlot(ctx, "2030-06-01", "09:00")
	require.NoError(t, err)
	require.NotNil(t, slot)
	assert.True(t, slot.Available)

	w = doJSON(t, router, http.MethodPost, "/api/bookings/missing/cancel", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = doJSON(t, router, http.MethodPost, "/api/bookings/missing/paid", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestChatRelaysAssistantText(t *testing.T) {
	router, _ := newTestRouter(t, &chatScript{replies: []string{"What is your name?"}})

	w := doJSON(t, router, http.MethodPost, "/chat", gin.H{"message": "I want a haircut"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","reply":"What is your name?"}`, w.Body.String())
}

func TestChatCreatesBookingFromIntent(t *testing.T) {
	router, st := newTestRouter(t, &chatScript{replies: []string{
		`{"service":"Haircut","date":"2030-06-01","time":"09:00","customer_name":"Ada"}`,
	}})
	ctx := context.Background()

	require.NoError(t, st.CreateSlot(ctx, &model.Slot{Date: "2030-06-01", Time: "09:00", Available: true}))

	w := doJSON(t, router, http.MethodPost, "/chat", gin.H{"message": "Ada, 2030-06-01 at 09:00"})
	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Status    string `json:"status"`
		BookingID string `json:"booking_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "reserved", resp.Status)
	assert.NotEmpty(t, resp.BookingID)

	created, err := st.GetBooking(ctx, resp.BookingID)
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, model.StatusPending, created.Status)

	slot, err := st.GetSlot(ctx, "2030-06-01", "09:00")
	require.NoError(t, err)
	require.NotNil(t, slot)
	assert.False(t, slot.Available)
}

func TestChatUnavailableSlot(t *testing.T) {
	router, st := newTestRouter(t, &chatScript{replies: []string{
		`{"service":"Haircut","date":"2030-06-01","time":"09:00","customer_name":"Ada"}`,
	}})
	ctx := context.Background()

	bookingsBefore, err := st.ListBookings(ctx)
	require.NoError(t, err)

	w := doJSON(t, router, http.MethodPost, "/chat", gin.H{"message": "book it"})
	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "unavailable", resp.Status)

	bookingsAfter, err := st.ListBookings(ctx)
	require.NoError(t, err)
	assert.Len(t, bookingsAfter, len(bookingsBefore))
}

func TestChatUpstreamFailureIsGenericReply(t *testing.T) {
	gin.SetMode(gin.TestMode)

	gormDB, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, gormDB.AutoMigrate(&model.Slot{}, &model.Booking{}, &model.PushSubscription{}))
	st := store.NewGormStore(gormDB)
	svc := booking.NewService(st, 10*time.Minute)

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	t.Cleanup(upstream.Close)
	chatClient := chat.NewClient(config.ChatConfig{
		APIKey: "test", Model: "gpt-4o-mini", BaseURL: upstream.URL + "/v1",
	})

	handler := NewHandler(st, svc, nil, nil, chatClient, nil)
	router := NewRouter(&config.ServerConfig{RateLimitPerSec: 1000, RateLimitBurst: 1000}, handler)

	w := doJSON(t, router, http.MethodPost, "/chat", gin.H{"message": "hello"})
	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Status string `json:"status"`
		Reply  string `json:"reply"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.NotEmpty(t, resp.Reply)
}

func TestPaymentStub(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	w := doJSON(t, router, http.MethodPost, "/pay/klarna", gin.H{
		"service": "Haircut", "customer_name": "Ada", "amount": 35.0, "booking_id": "b-1",
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"order_id":"ORDER-b-1"}`, w.Body.String())

	w = doJSON(t, router, http.MethodPost, "/pay/klarna", gin.H{"service": "Haircut"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubscriptionEndpoints(t *testing.T) {
	router, st := newTestRouter(t, nil)
	ctx := context.Background()

	w := doJSON(t, router, http.MethodPut, "/api/subscriptions", gin.H{
		"endpoint": "https://push.example/ep", "p256dh": "key", "auth": "auth",
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	subs, err := st.ListSubscriptions(ctx)
	require.NoError(t, err)
	assert.Len(t, subs, 1)

	w = doJSON(t, router, http.MethodDelete, "/api/subscriptions", gin.H{
		"endpoint": "https://push.example/ep",
	})
	assert.Equal(t, http.StatusNoContent, w.Code)

	subs, err = st.ListSubscriptions(ctx)
	require.NoError(t, err)
	assert.Empty(t, subs)

	// Missing body is a 400.
	w = doJSON(t, router, http.MethodPut, "/api/subscriptions", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVAPIDKeyUnconfigured(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	w := doJSON(t, router, http.MethodGet, "/api/vapid_public_key", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
