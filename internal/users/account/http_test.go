// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/quill/internal/platform/ctxutil"
	"github.com/taibuivan/quill/internal/platform/throttle"
	"github.com/taibuivan/quill/internal/users/account"
	"github.com/taibuivan/quill/internal/users/account/accounttest"
)

type allowAll struct{}

func (allowAll) Allow(context.Context, string) (throttle.Decision, error) {
	return throttle.Decision{Allowed: true}, nil
}

type denyAll struct{}

func (denyAll) Allow(context.Context, string) (throttle.Decision, error) {
	return throttle.Decision{Allowed: false, RetryAfter: 30 * time.Second}, nil
}

// serve routes a request through the handler, authenticated as actor when set.
func serve(handler *account.Handler, actor *account.Account, method, target, body string) *httptest.ResponseRecorder {
	request := httptest.NewRequest(method, target, strings.NewReader(body))
	if actor != nil {
		request = request.WithContext(ctxutil.WithAuthUser(request.Context(), claimsFor(actor)))
	}

	recorder := httptest.NewRecorder()
	handler.Routes().ServeHTTP(recorder, request)
	return recorder
}

/*
TestHandler_Create verifies registration returns 201 with the confirmation message.
*/
func TestHandler_Create(t *testing.T) {
	repository := accounttest.NewMemoryRepository()
	handler := account.NewHandler(newService(repository, &recordingSender{}), allowAll{})

	body := `{"email":"ada@example.com","password":"Str0ng!pass","c_password":"Str0ng!pass"}`
	recorder := serve(handler, nil, http.MethodPost, "/", body)

	require.Equal(t, http.StatusCreated, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "Please verify your email")

	forbidden := `{"email":"eve@example.com","password":"Str0ng!pass","c_password":"Str0ng!pass","is_active":true}`
	recorder = serve(handler, nil, http.MethodPost, "/", forbidden)
	assert.Equal(t, http.StatusForbidden, recorder.Code)
}

/*
TestHandler_CreateThrottled verifies the scoped throttle message and header.
*/
func TestHandler_CreateThrottled(t *testing.T) {
	handler := account.NewHandler(newService(accounttest.NewMemoryRepository(), &recordingSender{}), denyAll{})

	recorder := serve(handler, nil, http.MethodPost, "/", `{}`)
	assert.Equal(t, http.StatusTooManyRequests, recorder.Code)
	assert.Equal(t, "30", recorder.Header().Get("Retry-After"))
	assert.Contains(t, recorder.Body.String(), "Too many user creation requests.")
}

/*
TestHandler_Get verifies the private and public views.
*/
func TestHandler_Get(t *testing.T) {
	people := newCast()
	handler := account.NewHandler(newService(accounttest.NewMemoryRepository(people.all()...), &recordingSender{}), allowAll{})

	tests := []struct {
		name      string
		actor     *account.Account
		wantCode  int
		wantEmail bool
	}{
		{"self sees private view", people.member, http.StatusOK, true},
		{"superuser sees private view", people.superuser, http.StatusOK, true},
		{"other member sees public view", people.member2, http.StatusOK, false},
		{"anonymous is rejected", nil, http.StatusUnauthorized, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := serve(handler, tt.actor, http.MethodGet, "/"+people.member.ID, "")
			require.Equal(t, tt.wantCode, recorder.Code)
			if tt.wantCode != http.StatusOK {
				return
			}

			var envelope struct {
				Data map[string]any `json:"data"`
			}
			require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &envelope))
			_, hasEmail := envelope.Data["email"]
			assert.Equal(t, tt.wantEmail, hasEmail)
			assert.NotContains(t, envelope.Data, "password_hash")
		})
	}
}

/*
TestHandler_Transitions verifies the lifecycle endpoints return messages and
map permission failures to 403.
*/
func TestHandler_Transitions(t *testing.T) {
	people := newCast()
	repository := accounttest.NewMemoryRepository(people.all()...)
	handler := account.NewHandler(newService(repository, &recordingSender{}), allowAll{})

	recorder := serve(handler, people.staff, http.MethodPost, "/"+people.member.ID+"/strike-user", "")
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "has been striked.")

	recorder = serve(handler, people.staff, http.MethodPost, "/"+people.staff2.ID+"/deactivate-user", "")
	assert.Equal(t, http.StatusForbidden, recorder.Code)

	recorder = serve(handler, people.staff, http.MethodPost, "/"+people.member2.ID+"/unstrike-user", "")
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Contains(t, recorder.Body.String(), account.CodeNoStrikes)
}

/*
TestHandler_ListViews verifies staff receive the administrative summary.
*/
func TestHandler_ListViews(t *testing.T) {
	people := newCast()
	handler := account.NewHandler(newService(accounttest.NewMemoryRepository(people.all()...), &recordingSender{}), allowAll{})

	staffView := serve(handler, people.staff, http.MethodGet, "/?limit=10", "")
	require.Equal(t, http.StatusOK, staffView.Code)
	assert.Contains(t, staffView.Body.String(), `"strikes"`)

	memberView := serve(handler, people.member, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, memberView.Code)
	assert.NotContains(t, memberView.Body.String(), `"strikes"`)
	assert.Contains(t, memberView.Body.String(), `"total":6`)
}
