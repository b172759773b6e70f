package credential

import (
	"fmt"
	"strings"

	"github.com/Jamolkhon5/drai/internal/storage"
	"github.com/sirupsen/logrus"
)

// Source — откуда взят ключ для запроса к генерации
type Source string

const (
	SourceServer Source = "server"
	SourceUser   Source = "user"
	SourceNone   Source = "none"
)

const (
	MinKeyLength = 21
	KeyPrefix    = "AIza"
)

// Resolver выбирает активный ключ: серверный всегда имеет приоритет над
// пользовательским. Ключ пользователя перечитывается из хранилища при каждом
// обращении, так как он мог измениться из другой вкладки.
type Resolver struct {
	serverKey string
	store     storage.Store
}

func NewResolver(serverKey string, store storage.Store) *Resolver {
	return &Resolver{serverKey: serverKey, store: store}
}

func (r *Resolver) HasServerCredential() bool {
	return r.serverKey != ""
}

func (r *Resolver) HasUserCredential(clientID string) bool {
	_, ok := r.userKey(clientID)
	return ok
}

// Resolve возвращает источник ключа без раскрытия самого значения
func (r *Resolver) Resolve(clientID string) Source {
	if r.serverKey != "" {
		return SourceServer
	}
	if _, ok := r.userKey(clientID); ok {
		return SourceUser
	}
	return SourceNone
}

// ActiveKey возвращает ключ для фактического вызова. Значение не должно
// покидать серверный путь вызова.
func (r *Resolver) ActiveKey(clientID string) (string, Source) {
	if r.serverKey != "" {
		return r.serverKey, SourceServer
	}
	if key, ok := r.userKey(clientID); ok {
		return key, SourceUser
	}
	return "", SourceNone
}

func (r *Resolver) SaveUserKey(clientID, key string) error {
	if err := ValidateFormat(key); err != nil {
		return err
	}
	return r.store.Set(clientID, storage.KeyUserAPIKey, key)
}

func (r *Resolver) ClearUserKey(clientID string) error {
	return r.store.Delete(clientID, storage.KeyUserAPIKey)
}

func (r *Resolver) userKey(clientID string) (string, bool) {
	value, ok, err := r.store.Get(clientID, storage.KeyUserAPIKey)
	if err != nil {
		logrus.WithError(err).Error("failed to read user api key")
		return "", false
	}
	if !ok || value == "" {
		return "", false
	}
	return value, true
}

// ValidateFormat — локальная синтаксическая проверка ключа. Она не
// гарантирует, что бэкенд примет ключ, только отсекает явно некорректные.
func ValidateFormat(key string) error {
	key = strings.TrimSpace(key)
	if len(key) < MinKeyLength {
		return fmt.Errorf("api key must be at least %d characters long", MinKeyLength)
	}
	if !strings.HasPrefix(key, KeyPrefix) {
		return fmt.Errorf("api key must start with %q", KeyPrefix)
	}
	return nil
}
