package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Jamolkhon5/drai/internal/credential"
	"github.com/Jamolkhon5/drai/internal/gemini"
	"github.com/Jamolkhon5/drai/internal/history"
	"github.com/Jamolkhon5/drai/internal/models"
	"github.com/sirupsen/logrus"
)

var (
	ErrEmptyPrompt = errors.New("either message text or an image is required")
	ErrInFlight    = errors.New("a response is already being generated")
)

const (
	StateIdle     = "idle"
	StateAwaiting = "awaiting_response"

	welcomeText = "Hello! I'm DR Ai, your Dream Architect Intelligence assistant. How can I help you today?"
	welcomeHint = "\n\nTip: configure a Gemini API key in Settings to unlock full AI capabilities."

	imagePlaceholder = "please analyze this image"
)

// Generator — контракт клиента генерации; в тестах подменяется фейком
type Generator interface {
	Generate(ctx context.Context, prompt string, image *models.InlineImage, key string) (string, error)
}

// conversation — активный диалог одного клиента. epoch растёт при каждом
// "новом чате": запоздавший ответ со старым epoch отбрасывается.
type conversation struct {
	messages []models.Message
	epoch    uint64
	inFlight bool
}

// Service связывает обработчики с резолвером ключей, клиентом генерации и
// хранилищем истории. На клиента допускается не более одного запроса
// генерации одновременно.
type Service struct {
	resolver  *credential.Resolver
	generator Generator
	history   *history.Store

	mu            sync.Mutex
	conversations map[string]*conversation
}

func NewService(resolver *credential.Resolver, generator Generator, hist *history.Store) *Service {
	return &Service{
		resolver:      resolver,
		generator:     generator,
		history:       hist,
		conversations: make(map[string]*conversation),
	}
}

// Active возвращает текущий список сообщений клиента. При первом обращении
// диалог наполняется последней сохранённой сессией, а если истории нет —
// приветственным сообщением.
func (s *Service) Active(clientID string) []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv := s.conversation(clientID)
	return copyMessages(conv.messages)
}

// State сообщает, идёт ли сейчас генерация для клиента
func (s *Service) State(clientID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conversation(clientID).inFlight {
		return StateAwaiting
	}
	return StateIdle
}

// NewChat сбрасывает диалог к свежему приветствию. Сохранённые сессии не
// трогаются.
func (s *Service) NewChat(clientID string) []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv := s.conversation(clientID)
	conv.epoch++
	conv.inFlight = false
	conv.messages = []models.Message{s.welcomeMessage(clientID)}
	return copyMessages(conv.messages)
}

// Submit принимает пользовательский ввод и выполняет один обмен с бэкендом
// генерации. Сообщение пользователя добавляется в список сразу, до ответа.
func (s *Service) Submit(ctx context.Context, clientID, text string, image *models.InlineImage) ([]models.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" && image == nil {
		return nil, ErrEmptyPrompt
	}

	content := text
	if content == "" {
		content = imagePlaceholder
	}

	s.mu.Lock()
	conv := s.conversation(clientID)
	if conv.inFlight {
		s.mu.Unlock()
		return nil, ErrInFlight
	}

	userMsg := models.Message{
		ID:        newMessageID(),
		Role:      models.RoleUser,
		Content:   content,
		Timestamp: time.Now(),
		Image:     image,
	}
	conv.messages = append(conv.messages, userMsg)
	conv.inFlight = true
	epoch := conv.epoch
	s.mu.Unlock()

	key, source := s.resolver.ActiveKey(clientID)

	var reply string
	var genErr error
	if source == credential.SourceNone {
		// штатный ответ без похода в сеть
		reply = gemini.NoCredentialMessage
	} else {
		reply, genErr = s.generator.Generate(ctx, content, image, key)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if conv.epoch != epoch {
		// пока ждали ответ, клиент начал новый чат — результат отбрасываем
		logrus.WithField("client_id", clientID).Debug("discarding stale generation result")
		return copyMessages(conv.messages), nil
	}
	conv.inFlight = false

	if genErr != nil {
		logrus.WithError(genErr).WithField("client_id", clientID).Warn("generation failed")
		conv.messages = append(conv.messages, models.Message{
			ID:        newMessageID(),
			Role:      models.RoleAssistant,
			Content:   errorReply(genErr),
			Timestamp: time.Now(),
		})
		// неудачный обмен не сохраняем как успешный: он останется в памяти
		// и попадёт в следующий успешный слепок
		return copyMessages(conv.messages), nil
	}

	conv.messages = append(conv.messages, models.Message{
		ID:        newMessageID(),
		Role:      models.RoleAssistant,
		Content:   reply,
		Timestamp: time.Now(),
	})

	if err := s.history.SaveSession(clientID, conv.messages); err != nil {
		logrus.WithError(err).WithField("client_id", clientID).Error("failed to save chat session")
	}

	return copyMessages(conv.messages), nil
}

// conversation должен вызываться под s.mu
func (s *Service) conversation(clientID string) *conversation {
	conv, ok := s.conversations[clientID]
	if ok {
		return conv
	}

	conv = &conversation{}
	if sessions := s.history.LoadSessions(clientID); len(sessions) > 0 {
		conv.messages = copyMessages(sessions[0].Messages)
	} else {
		conv.messages = []models.Message{s.welcomeMessage(clientID)}
	}
	s.conversations[clientID] = conv
	return conv
}

func (s *Service) welcomeMessage(clientID string) models.Message {
	content := welcomeText
	if s.resolver.Resolve(clientID) == credential.SourceNone {
		content += welcomeHint
	}
	return models.Message{
		ID:        newMessageID(),
		Role:      models.RoleAssistant,
		Content:   content,
		Timestamp: time.Now(),
	}
}

func errorReply(err error) string {
	var ge *gemini.Error
	if errors.As(err, &ge) {
		return ge.Message
	}
	return "I apologize, but I'm having trouble connecting right now. Please check your API key in settings and try again."
}

func copyMessages(messages []models.Message) []models.Message {
	out := make([]models.Message, len(messages))
	copy(out, messages)
	return out
}

var messageSeq uint64

// newMessageID — идентификатор на основе времени с монотонным довеском,
// чтобы два сообщения в один и тот же момент не совпали
func newMessageID() string {
	return fmt.Sprintf("%d-%d", time.Now().UnixMilli(), atomic.AddUint64(&messageSeq, 1))
}
