// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/quill/internal/platform/apperr"
	"github.com/taibuivan/quill/internal/platform/ctxutil"
	"github.com/taibuivan/quill/internal/platform/sec"
	"github.com/taibuivan/quill/internal/users/account"
	"github.com/taibuivan/quill/internal/users/account/accounttest"
)

var fixtureTime = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func newFixture(email string, role sec.UserRole) *account.Account {
	return account.NewAccount(account.NewAccountInput{
		Email:        email,
		PasswordHash: "$2a$10$fixture",
		Role:         role,
		Verified:     true,
	}, fixtureTime)
}

type cast struct {
	superuser  *account.Account
	superuser2 *account.Account
	staff      *account.Account
	staff2     *account.Account
	member     *account.Account
	member2    *account.Account
}

func newCast() cast {
	return cast{
		superuser:  newFixture("root@quill.app", sec.RoleSuperuser),
		superuser2: newFixture("root2@quill.app", sec.RoleSuperuser),
		staff:      newFixture("staff@quill.app", sec.RoleStaff),
		staff2:     newFixture("staff2@quill.app", sec.RoleStaff),
		member:     newFixture("member@quill.app", sec.RoleMember),
		member2:    newFixture("member2@quill.app", sec.RoleMember),
	}
}

func (c cast) all() []*account.Account {
	return []*account.Account{c.superuser, c.superuser2, c.staff, c.staff2, c.member, c.member2}
}

type recordingSender struct {
	mu     sync.Mutex
	emails []string
	err    error
}

func (sender *recordingSender) SendEmailVerification(_ context.Context, email string) error {
	sender.mu.Lock()
	defer sender.mu.Unlock()
	sender.emails = append(sender.emails, email)
	return sender.err
}

func newService(repository account.AccountRepository, sender account.VerificationSender) *account.Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return account.NewService(repository, sender, clockwork.NewFakeClockAt(fixtureTime), 3, logger)
}

/*
TestDeactivate_PermissionMatrix walks the role hierarchy for deactivation.
*/
func TestDeactivate_PermissionMatrix(t *testing.T) {
	people := newCast()

	tests := []struct {
		name        string
		actor       *account.Account
		target      *account.Account
		wantCode    string
		wantMessage string
	}{
		{"superuser deactivates staff", people.superuser, people.staff, "", "User staff@quill.app has been deactivated."},
		{"superuser deactivates member", people.superuser, people.member, "", "User member@quill.app has been deactivated."},
		{"staff deactivates member", people.staff, people.member, "", "User member@quill.app has been deactivated."},
		{"staff deactivates staff", people.staff, people.staff2, "FORBIDDEN", "Only superusers can deactivate staff users."},
		{"staff deactivates superuser", people.staff, people.superuser, "FORBIDDEN", "You cannot deactivate a superuser."},
		{"superuser deactivates superuser", people.superuser, people.superuser2, "FORBIDDEN", "You cannot deactivate a superuser."},
		{"member deactivates member", people.member, people.member2, "FORBIDDEN", "You do not have permission to deactivate users."},
		{"member deactivates self", people.member, people.member, "", "User member@quill.app has been deactivated."},
		{"staff deactivates self", people.staff, people.staff, "FORBIDDEN", "You cannot deactivate yourself as a staff. Contact a superuser"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repository := accounttest.NewMemoryRepository(people.all()...)
			service := newService(repository, &recordingSender{})

			message, err := service.Deactivate(context.Background(), tt.actor.ID, tt.target.ID)
			stored := repository.Get(tt.target.ID)

			if tt.wantCode != "" {
				require.Error(t, err)
				assert.True(t, apperr.HasCode(err, tt.wantCode))
				assert.Equal(t, tt.wantMessage, apperr.As(err).Message)
				assert.True(t, stored.IsActive)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantMessage, message)
			assert.False(t, stored.IsActive)
		})
	}
}

/*
TestDeactivate_SuperuserSelf verifies that a superuser asking to deactivate
itself is forced to re-verify its email and stays active.
*/
func TestDeactivate_SuperuserSelf(t *testing.T) {
	people := newCast()
	repository := accounttest.NewMemoryRepository(people.all()...)
	service := newService(repository, &recordingSender{})

	_, err := service.Deactivate(context.Background(), people.superuser.ID, people.superuser.ID)
	require.NoError(t, err)

	stored := repository.Get(people.superuser.ID)
	assert.True(t, stored.IsActive)
	assert.False(t, stored.IsEmailVerified)
}

/*
TestDeactivate_AlreadyDeactivated verifies repeated transitions are rejected
with a business rule error.
*/
func TestDeactivate_AlreadyDeactivated(t *testing.T) {
	people := newCast()
	people.member.IsActive = false
	repository := accounttest.NewMemoryRepository(people.all()...)
	service := newService(repository, &recordingSender{})

	_, err := service.Deactivate(context.Background(), people.superuser.ID, people.member.ID)
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, account.CodeAlreadyDeactivated))
	assert.Equal(t, 400, apperr.As(err).HTTPStatus)
}

/*
TestActivate verifies the activation rules and that the failed-login counter
is cleared.
*/
func TestActivate(t *testing.T) {
	tests := []struct {
		name     string
		actor    func(c cast) *account.Account
		target   func(c cast) *account.Account
		wantCode string
	}{
		{"staff activates member", func(c cast) *account.Account { return c.staff }, func(c cast) *account.Account { return c.member }, ""},
		{"superuser activates staff", func(c cast) *account.Account { return c.superuser }, func(c cast) *account.Account { return c.staff2 }, ""},
		{"staff activates staff", func(c cast) *account.Account { return c.staff }, func(c cast) *account.Account { return c.staff2 }, "FORBIDDEN"},
		{"member activates member", func(c cast) *account.Account { return c.member2 }, func(c cast) *account.Account { return c.member }, "FORBIDDEN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			people := newCast()
			target := tt.target(people)
			target.IsActive = false
			target.FailedLoginAttempts = 5

			repository := accounttest.NewMemoryRepository(people.all()...)
			service := newService(repository, &recordingSender{})

			_, err := service.Activate(context.Background(), tt.actor(people).ID, target.ID)
			stored := repository.Get(target.ID)

			if tt.wantCode != "" {
				assert.True(t, apperr.HasCode(err, tt.wantCode))
				assert.False(t, stored.IsActive)
				return
			}

			require.NoError(t, err)
			assert.True(t, stored.IsActive)
			assert.Zero(t, stored.FailedLoginAttempts)
		})
	}

	t.Run("already active", func(t *testing.T) {
		people := newCast()
		service := newService(accounttest.NewMemoryRepository(people.all()...), &recordingSender{})

		_, err := service.Activate(context.Background(), people.superuser.ID, people.member.ID)
		assert.True(t, apperr.HasCode(err, account.CodeAlreadyActive))
	})
}

/*
TestStrike_AutoDeactivatesAtMax verifies the strike counter never exceeds
the maximum and that reaching it deactivates the account.
*/
func TestStrike_AutoDeactivatesAtMax(t *testing.T) {
	people := newCast()
	repository := accounttest.NewMemoryRepository(people.all()...)
	service := newService(repository, &recordingSender{})
	ctx := context.Background()

	message, err := service.Strike(ctx, people.staff.ID, people.member.ID)
	require.NoError(t, err)
	assert.Equal(t, "User member@quill.app has been striked.", message)

	_, err = service.Strike(ctx, people.staff.ID, people.member.ID)
	require.NoError(t, err)

	message, err = service.Strike(ctx, people.staff.ID, people.member.ID)
	require.NoError(t, err)
	assert.Equal(t, "User member@quill.app has been striked 3 times. User member@quill.app has been deactivated.", message)

	stored := repository.Get(people.member.ID)
	assert.Equal(t, 3, stored.Strikes)
	assert.False(t, stored.IsActive)

	_, err = service.Strike(ctx, people.staff.ID, people.member.ID)
	assert.True(t, apperr.HasCode(err, account.CodeTargetDeactivated))
	assert.Equal(t, 3, repository.Get(people.member.ID).Strikes)
}

/*
TestStrike_LimitAndPermissions covers the blocked strike paths.
*/
func TestStrike_LimitAndPermissions(t *testing.T) {
	people := newCast()
	people.member2.Strikes = 3
	repository := accounttest.NewMemoryRepository(people.all()...)
	service := newService(repository, &recordingSender{})
	ctx := context.Background()

	_, err := service.Strike(ctx, people.superuser.ID, people.member2.ID)
	assert.True(t, apperr.HasCode(err, account.CodeStrikeLimit))

	_, err = service.Strike(ctx, people.staff.ID, people.staff.ID)
	require.Error(t, err)
	assert.Equal(t, "You cannot strike yourself.", apperr.As(err).Message)

	_, err = service.Strike(ctx, people.staff.ID, people.staff2.ID)
	assert.Equal(t, "Only superusers can strike staff users.", apperr.As(err).Message)

	_, err = service.Strike(ctx, people.superuser.ID, people.superuser2.ID)
	assert.Equal(t, "You cannot strike a superuser.", apperr.As(err).Message)

	_, err = service.Strike(ctx, people.superuser.ID, people.staff2.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, repository.Get(people.staff2.ID).Strikes)
}

/*
TestStrike_ConcurrentCallsDoNotLoseUpdates verifies that strikes racing on
the same account serialize through Mutate.
*/
func TestStrike_ConcurrentCallsDoNotLoseUpdates(t *testing.T) {
	people := newCast()
	repository := accounttest.NewMemoryRepository(people.all()...)
	service := newService(repository, &recordingSender{})

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0

	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := service.Strike(context.Background(), people.superuser.ID, people.member.ID); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, succeeded)
	assert.Equal(t, 3, repository.Get(people.member.ID).Strikes)
}

/*
TestUnstrike_AtZeroDoesNotMutate verifies unstrike on a clean account is a
business rule error and leaves the record untouched.
*/
func TestUnstrike_AtZeroDoesNotMutate(t *testing.T) {
	people := newCast()
	repository := accounttest.NewMemoryRepository(people.all()...)
	service := newService(repository, &recordingSender{})

	before := repository.Get(people.member.ID)
	_, err := service.Unstrike(context.Background(), people.staff.ID, people.member.ID)
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, account.CodeNoStrikes))
	assert.Equal(t, before, repository.Get(people.member.ID))
}

/*
TestUnstrike_DecrementsCounter verifies a permitted unstrike.
*/
func TestUnstrike_DecrementsCounter(t *testing.T) {
	people := newCast()
	people.member.Strikes = 2
	repository := accounttest.NewMemoryRepository(people.all()...)
	service := newService(repository, &recordingSender{})

	message, err := service.Unstrike(context.Background(), people.staff.ID, people.member.ID)
	require.NoError(t, err)
	assert.Equal(t, "User member@quill.app has been unstriked.", message)
	assert.Equal(t, 1, repository.Get(people.member.ID).Strikes)

	_, err = service.Unstrike(context.Background(), people.member2.ID, people.member.ID)
	assert.Equal(t, "You do not have permission to unstrike users.", apperr.As(err).Message)
}

/*
TestTransition_UnknownActor verifies a deleted actor is treated as unauthenticated.
*/
func TestTransition_UnknownActor(t *testing.T) {
	people := newCast()
	service := newService(accounttest.NewMemoryRepository(people.all()...), &recordingSender{})

	_, err := service.Strike(context.Background(), "missing", people.member.ID)
	assert.True(t, apperr.HasCode(err, "UNAUTHORIZED"))
}

/*
TestTransition_DisabledActor verifies that a staff account deactivated or
locked out after sign-in can no longer act on other accounts.
*/
func TestTransition_DisabledActor(t *testing.T) {
	tests := []struct {
		name    string
		disable func(actor *account.Account)
		wantMsg string
	}{
		{"deactivated", func(actor *account.Account) { actor.IsActive = false }, "User is inactive."},
		{"email unverified", func(actor *account.Account) { actor.IsEmailVerified = false }, "Email is not verified. You must verify your email first"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			people := newCast()
			tt.disable(people.staff)
			people.member2.IsActive = false
			people.member2.Strikes = 1

			repository := accounttest.NewMemoryRepository(people.all()...)
			service := newService(repository, &recordingSender{})
			ctx := context.Background()

			actions := map[string]func() (string, error){
				"strike":     func() (string, error) { return service.Strike(ctx, people.staff.ID, people.member.ID) },
				"deactivate": func() (string, error) { return service.Deactivate(ctx, people.staff.ID, people.member.ID) },
				"activate":   func() (string, error) { return service.Activate(ctx, people.staff.ID, people.member2.ID) },
				"unstrike":   func() (string, error) { return service.Unstrike(ctx, people.staff.ID, people.member.ID) },
			}
			for action, apply := range actions {
				_, err := apply()
				require.Error(t, err, action)
				assert.True(t, apperr.HasCode(err, account.CodeActorDisabled), action)
				assert.Equal(t, tt.wantMsg, apperr.As(err).Message, action)
				assert.Equal(t, 401, apperr.As(err).HTTPStatus, action)
			}

			member := repository.Get(people.member.ID)
			assert.True(t, member.IsActive)
			assert.Zero(t, member.Strikes)
			assert.False(t, repository.Get(people.member2.ID).IsActive)
		})
	}
}

// scopeCapture records the request id seen by the log handler for each event.
type scopeCapture struct {
	slog.Handler
	mu   sync.Mutex
	seen map[string]string
}

func (capture *scopeCapture) Handle(ctx context.Context, record slog.Record) error {
	capture.mu.Lock()
	defer capture.mu.Unlock()
	capture.seen[record.Message] = ctxutil.RequestID(ctx)
	return nil
}

/*
TestService_LogsCarryRequestContext verifies that account events are logged
with the caller's context, so handlers can correlate them with the request.
*/
func TestService_LogsCarryRequestContext(t *testing.T) {
	people := newCast()
	repository := accounttest.NewMemoryRepository(people.all()...)
	capture := &scopeCapture{Handler: slog.NewTextHandler(io.Discard, nil), seen: map[string]string{}}
	service := account.NewService(repository, &recordingSender{}, clockwork.NewFakeClockAt(fixtureTime), 3, slog.New(capture))

	ctx, _ := ctxutil.Open(context.Background(), "req-42")

	_, err := service.Strike(ctx, people.staff.ID, people.member.ID)
	require.NoError(t, err)

	bio := "hello"
	_, err = service.Update(ctx, claimsFor(people.member), people.member.ID, account.UpdateInput{Fields: []string{"bio"}, Bio: &bio})
	require.NoError(t, err)

	assert.Equal(t, "req-42", capture.seen["account_transition"])
	assert.Equal(t, "req-42", capture.seen["account_updated"])
}
