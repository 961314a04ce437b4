package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"laundrmate/internal/config"
	"laundrmate/internal/domain"
	"laundrmate/internal/models"
	"laundrmate/internal/session"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	ownerSession = &models.Session{Token: "owner-token", Role: models.RoleOwner, UserID: 1}
	userSession  = &models.Session{Token: "user-token", Role: models.RoleUser, UserID: 2}
)

func newTestClient(t *testing.T, s *models.Session, handler http.HandlerFunc) (*Client, *int32) {
	t.Helper()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	c := NewClient(config.APIConfig{
		BaseURL:    srv.URL,
		AuthScheme: "Bearer",
		Timeout:    2 * time.Second,
	}, session.Static{Session: s}, nil)
	return c, &hits
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func TestCreateBooking(t *testing.T) {
	c, hits := newTestClient(t, userSession, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/bookings", r.URL.Path)
		assert.Equal(t, "Bearer user-token", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))

		body, _ := io.ReadAll(r.Body)
		var got map[string]any
		require.NoError(t, json.Unmarshal(body, &got))
		assert.Equal(t, float64(7), got["laundryId"])
		assert.Equal(t, "Dry Clean", got["serviceType"])
		_, hasNotes := got["notes"]
		assert.False(t, hasNotes)

		writeJSON(w, http.StatusCreated, map[string]any{
			"id": 100, "laundryId": 7, "userId": 2, "status": "pending", "serviceType": "Dry Clean",
		})
	})

	b, err := c.CreateBooking(context.Background(), models.BookingCreate{
		LaundryID:   7,
		ServiceType: models.Set("Dry Clean"),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(100), b.ID)
	assert.Equal(t, models.StatusPending, b.Status)
	assert.EqualValues(t, 1, atomic.LoadInt32(hits))
}

func TestCreateBooking_ValidatesBeforeSending(t *testing.T) {
	c, hits := newTestClient(t, userSession, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := c.CreateBooking(context.Background(), models.BookingCreate{})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = c.CreateBooking(context.Background(), models.BookingCreate{LaundryID: 1, Price: models.Set(models.Decimal(-1))})
	assert.ErrorIs(t, err, domain.ErrValidation)

	assert.Zero(t, atomic.LoadInt32(hits))
}

func TestNoSessionShortCircuits(t *testing.T) {
	c, hits := newTestClient(t, nil, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []any{})
	})

	_, err := c.ListMyBookings(context.Background())
	assert.ErrorIs(t, err, domain.ErrAuth)
	_, err = c.CreateBooking(context.Background(), models.BookingCreate{LaundryID: 7})
	assert.ErrorIs(t, err, domain.ErrAuth)
	assert.Zero(t, atomic.LoadInt32(hits))
}

func TestListOwnedBookings_RequiresOwner(t *testing.T) {
	c, hits := newTestClient(t, userSession, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []any{})
	})
	_, err := c.ListOwnedBookings(context.Background())
	assert.ErrorIs(t, err, domain.ErrAuth)
	assert.Zero(t, atomic.LoadInt32(hits))
}

func TestListOwnedBookings(t *testing.T) {
	c, _ := newTestClient(t, ownerSession, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/bookings/owner", r.URL.Path)
		_, _ = io.WriteString(w, `[
			{"id":1,"laundryId":3,"status":"pending","price":"12.50","Laundry":{"id":3,"name":"Sunny Suds"}},
			{"id":2,"laundryId":3,"status":"confirmed","price":8}
		]`)
	})

	list, err := c.ListOwnedBookings(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Sunny Suds", list[0].Laundry.Name)
	assert.InDelta(t, 12.5, list[0].Price.Float64(), 0.001)
	assert.InDelta(t, 8.0, list[1].Price.Float64(), 0.001)
}

func TestListMyBookings_NonArrayIsEmpty(t *testing.T) {
	c, _ := newTestClient(t, userSession, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"message":"ok"}`)
	})
	list, err := c.ListMyBookings(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestListMyBookings_WrappedArray(t *testing.T) {
	c, _ := newTestClient(t, userSession, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"data":[{"id":5,"laundryId":1,"status":"cancelled"}]}`)
	})
	list, err := c.ListMyBookings(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, models.StatusCancelled, list[0].Status)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		code   int
		status bool
		want   error
	}{
		{"NotFound", http.StatusNotFound, false, domain.ErrNotFound},
		{"Unauthorized", http.StatusUnauthorized, false, domain.ErrAuth},
		{"Forbidden", http.StatusForbidden, false, domain.ErrAuth},
		{"BadRequest", http.StatusBadRequest, false, domain.ErrValidation},
		{"ServerError", http.StatusBadGateway, false, domain.ErrNetwork},
		{"StatusBadRequest", http.StatusBadRequest, true, domain.ErrInvalidTransition},
		{"StatusConflict", http.StatusConflict, true, domain.ErrInvalidTransition},
		{"StatusUnprocessable", http.StatusUnprocessableEntity, true, domain.ErrInvalidTransition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, ownerSession, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.code, map[string]string{"message": "backend says no"})
			})

			var err error
			if tt.status {
				_, err = c.PatchBookingStatus(context.Background(), 42, models.StatusConfirmed)
			} else {
				_, err = c.GetBooking(context.Background(), 42)
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)

			var apiErr *domain.APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.code, apiErr.StatusCode)
			assert.Equal(t, "backend says no", apiErr.Message)
		})
	}
}

func TestTransportFailureIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewClient(config.APIConfig{BaseURL: url, Timeout: time.Second}, session.Static{Session: userSession}, nil)
	_, err := c.GetBooking(context.Background(), 1)
	assert.ErrorIs(t, err, domain.ErrNetwork)
}

func TestTimeoutIsNetworkError(t *testing.T) {
	c, _ := newTestClient(t, userSession, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
		}
	})
	c.UseHTTPClient(&http.Client{Timeout: 50 * time.Millisecond})

	_, err := c.GetBooking(context.Background(), 1)
	assert.ErrorIs(t, err, domain.ErrNetwork)
}

func TestUpdateBooking(t *testing.T) {
	t.Run("UserCannotChangeStatus", func(t *testing.T) {
		c, hits := newTestClient(t, userSession, func(w http.ResponseWriter, r *http.Request) {})
		_, err := c.UpdateBooking(context.Background(), 3, models.StatusUpdate(models.StatusConfirmed))
		assert.ErrorIs(t, err, domain.ErrAuth)
		assert.Zero(t, atomic.LoadInt32(hits))
	})

	t.Run("EmptyPayload", func(t *testing.T) {
		c, hits := newTestClient(t, userSession, func(w http.ResponseWriter, r *http.Request) {})
		_, err := c.UpdateBooking(context.Background(), 3, models.BookingUpdate{})
		assert.ErrorIs(t, err, domain.ErrValidation)
		assert.Zero(t, atomic.LoadInt32(hits))
	})

	t.Run("SendsOnlyPresentFields", func(t *testing.T) {
		c, _ := newTestClient(t, userSession, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPut, r.Method)
			assert.Equal(t, "/api/bookings/3", r.URL.Path)
			var got map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			assert.Equal(t, map[string]any{"notes": "gentle", "price": nil}, got)
			writeJSON(w, http.StatusOK, map[string]any{"id": 3, "laundryId": 1, "status": "pending", "notes": "gentle"})
		})
		b, err := c.UpdateBooking(context.Background(), 3, models.BookingUpdate{
			Notes: models.Set("gentle"),
			Price: models.Null[models.Decimal](),
		})
		require.NoError(t, err)
		assert.Equal(t, "gentle", *b.Notes)
	})
}

func TestPatchBookingStatus(t *testing.T) {
	c, _ := newTestClient(t, ownerSession, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/api/bookings/42/status", r.URL.Path)
		var got map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, "cancelled", got["status"])
		writeJSON(w, http.StatusOK, map[string]any{"id": 42, "laundryId": 9, "status": "cancelled"})
	})

	b, err := c.PatchBookingStatus(context.Background(), 42, models.StatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, b.Status)

	_, err = c.PatchBookingStatus(context.Background(), 42, "archived")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestPatchBookingStatus_EmptyReplyIsSuccess(t *testing.T) {
	c, _ := newTestClient(t, ownerSession, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	b, err := c.PatchBookingStatus(context.Background(), 42, models.StatusConfirmed)
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Zero(t, b.ID)
}

func TestGetBooking_EmptyReplyIsNetworkError(t *testing.T) {
	c, _ := newTestClient(t, userSession, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "ok"})
	})

	_, err := c.GetBooking(context.Background(), 42)
	assert.ErrorIs(t, err, domain.ErrNetwork)
}

func TestDeleteBooking(t *testing.T) {
	c, _ := newTestClient(t, userSession, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		if r.URL.Path == "/api/bookings/8" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Booking not found"})
	})

	require.NoError(t, c.DeleteBooking(context.Background(), 8))
	assert.ErrorIs(t, c.DeleteBooking(context.Background(), 9), domain.ErrNotFound)
}

func TestAuthorizationScheme(t *testing.T) {
	var header string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header = r.Header.Get("Authorization")
		writeJSON(w, http.StatusOK, []any{})
	}))
	defer srv.Close()

	c := NewClient(config.APIConfig{BaseURL: srv.URL, AuthScheme: "none"}, session.Static{Session: userSession}, nil)
	_, err := c.ListMyBookings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "user-token", header)
}

func TestListLaundries_Cache(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	c, hits := newTestClient(t, nil, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, []map[string]any{{"id": 1, "name": "Bubbles"}})
	})
	c.UseRedisCache(rdb, time.Minute)

	for range 3 {
		list, err := c.ListLaundries(context.Background())
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "Bubbles", list[0].Name)
	}
	assert.EqualValues(t, 1, atomic.LoadInt32(hits))
	assert.True(t, mr.Exists(laundriesCacheKey))
}

func TestLaundryMutationsInvalidateCache(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	c, _ := newTestClient(t, ownerSession, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			var in map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
			assert.Equal(t, "Fresh Fold", in["name"])
			writeJSON(w, http.StatusCreated, map[string]any{"id": 4, "name": in["name"]})
		default:
			writeJSON(w, http.StatusOK, []any{})
		}
	})
	c.UseRedisCache(rdb, time.Minute)

	_, err := c.ListLaundries(context.Background())
	require.NoError(t, err)
	require.True(t, mr.Exists(laundriesCacheKey))

	l, err := c.CreateLaundry(context.Background(), models.LaundryInput{Name: "  Fresh Fold "})
	require.NoError(t, err)
	assert.Equal(t, int64(4), l.ID)
	assert.False(t, mr.Exists(laundriesCacheKey))
}

func TestCreateLaundry_Validation(t *testing.T) {
	c, hits := newTestClient(t, ownerSession, func(w http.ResponseWriter, r *http.Request) {})
	_, err := c.CreateLaundry(context.Background(), models.LaundryInput{Name: "   "})
	assert.ErrorIs(t, err, domain.ErrValidation)

	u, _ := newTestClient(t, userSession, func(w http.ResponseWriter, r *http.Request) {})
	_, err = u.CreateLaundry(context.Background(), models.LaundryInput{Name: "Mine"})
	assert.ErrorIs(t, err, domain.ErrAuth)
	assert.Zero(t, atomic.LoadInt32(hits))
}

func TestLogin(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id": 9, "role": "owner",
	}).SignedString([]byte("k"))
	require.NoError(t, err)

	c, _ := newTestClient(t, nil, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/login", r.URL.Path)
		var creds models.Credentials
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		if creds.Password != "secret" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid credentials"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"token": token})
	})

	s, err := c.Login(context.Background(), models.Credentials{Email: "o@x.io", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleOwner, s.Role)
	assert.Equal(t, int64(9), s.UserID)
	assert.Equal(t, "o@x.io", s.Email)

	_, err = c.Login(context.Background(), models.Credentials{Email: "o@x.io", Password: "wrong"})
	assert.ErrorIs(t, err, domain.ErrAuth)

	_, err = c.Login(context.Background(), models.Credentials{Email: "o@x.io"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestRegister(t *testing.T) {
	c, hits := newTestClient(t, nil, func(w http.ResponseWriter, r *http.Request) {
		var reg models.Registration
		require.NoError(t, json.NewDecoder(r.Body).Decode(&reg))
		assert.Equal(t, models.RoleUser, reg.Role)
		writeJSON(w, http.StatusCreated, map[string]any{"id": 1})
	})

	require.NoError(t, c.Register(context.Background(), models.Registration{
		Name: "Ann", Email: "a@x.io", Password: "pw", Role: "User",
	}))
	err := c.Register(context.Background(), models.Registration{Name: "Ann", Email: "a@x.io", Password: "pw", Role: "admin"})
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.EqualValues(t, 1, atomic.LoadInt32(hits))
}

func TestRateLimitHonoursContext(t *testing.T) {
	c, _ := newTestClient(t, userSession, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []any{})
	})
	c2 := NewClient(config.APIConfig{
		BaseURL:   c.baseURL,
		RateLimit: config.APIRateLimitConfig{RPS: 0.001, Burst: 1},
	}, session.Static{Session: userSession}, nil)

	_, err := c2.ListMyBookings(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c2.ListMyBookings(ctx)
	assert.ErrorIs(t, err, domain.ErrNetwork)
}
