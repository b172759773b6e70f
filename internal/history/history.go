package history

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Jamolkhon5/drai/internal/models"
	"github.com/Jamolkhon5/drai/internal/storage"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	// MaxSessions — верхняя граница сохранённых сессий на клиента.
	// Старые записи вытесняются молча, это не ошибка.
	MaxSessions = 50

	previewLength  = 50
	defaultPreview = "New Chat"
)

// Store хранит слепки завершённых диалогов. Каждая запись — полный список
// сообщений на момент сохранения, записи не изменяются на месте.
type Store struct {
	storage storage.Store
}

func NewStore(st storage.Store) *Store {
	return &Store{storage: st}
}

// SaveSession сохраняет слепок диалога. Списки короче двух сообщений
// (одно приветствие без обмена) не сохраняются.
func (s *Store) SaveSession(clientID string, messages []models.Message) error {
	if len(messages) < 2 {
		return nil
	}

	sessions := s.LoadSessions(clientID)

	msgs := make([]models.Message, len(messages))
	copy(msgs, messages)

	session := models.ChatSession{
		ID:        uuid.NewString(),
		Messages:  msgs,
		Timestamp: time.Now(),
		Preview:   buildPreview(messages),
	}

	sessions = append([]models.ChatSession{session}, sessions...)
	if len(sessions) > MaxSessions {
		sessions = sessions[:MaxSessions]
	}

	return s.writeSessions(clientID, sessions)
}

// LoadSessions возвращает сохранённые сессии, самая свежая — первой.
// Повреждённые данные приравниваются к пустой истории и никогда не
// поднимаются до вызывающего кода.
func (s *Store) LoadSessions(clientID string) []models.ChatSession {
	value, ok, err := s.storage.Get(clientID, storage.KeyChatHistory)
	if err != nil {
		logrus.WithError(err).Error("failed to read chat history")
		return []models.ChatSession{}
	}
	if !ok {
		return []models.ChatSession{}
	}

	var sessions []models.ChatSession
	if err := json.Unmarshal([]byte(value), &sessions); err != nil {
		logrus.WithError(err).WithField("client_id", clientID).
			Error("corrupt chat history, treating as empty")
		return []models.ChatSession{}
	}

	return sessions
}

// DeleteSession удаляет одну сессию по идентификатору
func (s *Store) DeleteSession(clientID, id string) error {
	sessions := s.LoadSessions(clientID)

	remaining := make([]models.ChatSession, 0, len(sessions))
	for _, session := range sessions {
		if session.ID != id {
			remaining = append(remaining, session)
		}
	}

	return s.writeSessions(clientID, remaining)
}

// ClearSessions удаляет всю историю клиента
func (s *Store) ClearSessions(clientID string) error {
	return s.storage.Delete(clientID, storage.KeyChatHistory)
}

func (s *Store) writeSessions(clientID string, sessions []models.ChatSession) error {
	data, err := json.Marshal(sessions)
	if err != nil {
		return fmt.Errorf("error marshaling chat history: %w", err)
	}
	return s.storage.Set(clientID, storage.KeyChatHistory, string(data))
}

func buildPreview(messages []models.Message) string {
	for _, msg := range messages {
		if msg.Role == models.RoleUser {
			runes := []rune(msg.Content)
			if len(runes) > previewLength {
				runes = runes[:previewLength]
			}
			return string(runes) + "..."
		}
	}
	return defaultPreview
}
