package admin

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/argon2"

	"serotonyl.ru/recognition-bot/internal/common"
	"serotonyl.ru/recognition-bot/internal/features/ledger"
	"serotonyl.ru/recognition-bot/internal/store/memory"
	"serotonyl.ru/recognition-bot/internal/testutil"
)

const (
	adminID  = int64(900)
	password = "correct horse"
)

// cheapHash — хеш с минимальными параметрами, чтобы тесты шли быстро.
func cheapHash(pw string) string {
	salt := []byte("0123456789abcdef")
	key := argon2.IDKey([]byte(pw), salt, 1, 1024, 1, 32)
	return fmt.Sprintf("$argon2id$v=19$m=1024,t=1,p=1$%s$%s",
		base64.RawStdEncoding.EncodeToString(salt), base64.RawStdEncoding.EncodeToString(key))
}

func setup(t *testing.T) (*Service, *ledger.Service, *testutil.Clock) {
	t.Helper()
	cfg := testutil.Config()
	cfg.AdminIDs = []int64{adminID}
	cfg.AdminPasswordHash = cheapHash(password)
	clock := testutil.NewClock(time.Date(2024, 6, 12, 15, 0, 0, 0, time.UTC))
	l := ledger.NewService(memory.New(), cfg, nil, clock.Now)
	return NewService(l, cfg), l, clock
}

func TestVerifyArgon2id(t *testing.T) {
	hash := cheapHash(password)
	assert.True(t, verifyArgon2id(password, hash))
	assert.False(t, verifyArgon2id("wrong", hash))
	assert.False(t, verifyArgon2id(password, ""))
	assert.False(t, verifyArgon2id(password, "$bcrypt$v=19$m=1,t=1,p=1$AA$AA"))
}

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)
	assert.True(t, verifyArgon2id("s3cret", hash))

	_, err = HashPassword("")
	assert.True(t, errors.Is(err, common.ErrValidation))
}

func TestLoginSessionExpires(t *testing.T) {
	svc, _, clock := setup(t)
	ctx := context.Background()

	_, err := svc.Login(ctx, 1, password)
	assert.True(t, errors.Is(err, common.ErrNotAdmin))

	assert.False(t, svc.HasActiveSession(adminID))
	session, err := svc.Login(ctx, adminID, password)
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)
	assert.True(t, svc.HasActiveSession(adminID))

	clock.Advance(time.Hour)
	assert.False(t, svc.HasActiveSession(adminID))
}

func TestLoginThrottled(t *testing.T) {
	svc, _, clock := setup(t)
	ctx := context.Background()

	for i := 0; i < MaxAttempts; i++ {
		_, err := svc.Login(ctx, adminID, "nope")
		assert.True(t, errors.Is(err, common.ErrWrongPassword))
	}
	_, err := svc.Login(ctx, adminID, password)
	assert.True(t, errors.Is(err, common.ErrTooManyAttempts))

	clock.Advance(AttemptWindow)
	_, err = svc.Login(ctx, adminID, password)
	assert.NoError(t, err)
}

func TestDeductAndRefund(t *testing.T) {
	svc, l, _ := setup(t)
	ctx := context.Background()

	_, err := svc.Deduct(ctx, adminID, 2, 5, "штраф")
	assert.True(t, errors.Is(err, common.ErrSessionExpired))

	_, err = svc.Login(ctx, adminID, password)
	require.NoError(t, err)

	d, err := svc.Deduct(ctx, adminID, 2, 5, "штраф")
	require.NoError(t, err)
	assert.Equal(t, adminID, d.CreatedBy)

	_, err = svc.Deduct(ctx, adminID, 2, 0, "ноль")
	assert.True(t, errors.Is(err, common.ErrValidation))

	res, err := svc.Refund(ctx, adminID, d.ID)
	require.NoError(t, err)
	assert.True(t, res.Changed)

	res, err = svc.Refund(ctx, adminID, d.ID)
	require.NoError(t, err)
	assert.False(t, res.Changed)

	_, err = svc.Refund(ctx, adminID, "dbt-missing")
	assert.True(t, errors.Is(err, common.ErrNotFound))

	spent, err := l.SumDebits(ctx, ledger.DebitQuery{User: 2, ActiveOnly: true})
	require.NoError(t, err)
	assert.Zero(t, spent)
}

func TestHandlers(t *testing.T) {
	svc, _, _ := setup(t)
	sender := &testutil.Sender{}
	h := NewHandler(svc, testutil.Names{2: "Боря"}, sender)
	ctx := context.Background()

	h.HandleLogin(ctx, -100, adminID, false, []string{password})
	assert.Contains(t, sender.Last(), "только в личных сообщениях")

	h.HandleDeduct(ctx, adminID, adminID, 2, []string{"5"})
	assert.Contains(t, sender.Last(), "/login")

	h.HandleLogin(ctx, adminID, adminID, true, nil)
	assert.Contains(t, sender.Last(), "Введите пароль")
	assert.False(t, h.HandleAdminMessage(ctx, 1, 1, "привет"))
	require.True(t, h.HandleAdminMessage(ctx, adminID, adminID, password))
	assert.Contains(t, sender.Last(), "Вход выполнен")
	assert.False(t, h.HandleAdminMessage(ctx, adminID, adminID, password))

	h.HandleDeduct(ctx, adminID, adminID, 2, []string{"abc"})
	assert.Contains(t, sender.Last(), "положительным числом")

	h.HandleDeduct(ctx, adminID, adminID, 2, []string{"5", "за", "опоздание"})
	assert.Contains(t, sender.Last(), "У Боря списано 5 баллов")

	h.HandleRefund(ctx, adminID, adminID, []string{"dbt-missing"})
	assert.Contains(t, sender.Last(), "не найдено")

	h.HandleLogout(ctx, adminID, adminID)
	assert.False(t, svc.HasActiveSession(adminID))
}
