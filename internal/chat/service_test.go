package chat

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Jamolkhon5/drai/internal/credential"
	"github.com/Jamolkhon5/drai/internal/gemini"
	"github.com/Jamolkhon5/drai/internal/history"
	"github.com/Jamolkhon5/drai/internal/models"
	"github.com/Jamolkhon5/drai/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testClient = "client-1"
	serverKey  = "AIzaServerKey0123456789"
)

type fakeGenerator struct {
	mu         sync.Mutex
	calls      int
	lastPrompt string
	lastImage  *models.InlineImage
	reply      string
	err        error
	gate       chan struct{} // если задан, Generate ждёт закрытия канала
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string, image *models.InlineImage, key string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.lastPrompt = prompt
	f.lastImage = image
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	return f.reply, f.err
}

func (f *fakeGenerator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fixture struct {
	service   *Service
	generator *fakeGenerator
	history   *history.Store
	store     *storage.MemoryStore
}

func newFixture(serverCredential string) *fixture {
	store := storage.NewMemoryStore()
	generator := &fakeGenerator{reply: "generated reply"}
	hist := history.NewStore(store)
	resolver := credential.NewResolver(serverCredential, store)

	return &fixture{
		service:   NewService(resolver, generator, hist),
		generator: generator,
		history:   hist,
		store:     store,
	}
}

func TestWelcomeSeed(t *testing.T) {
	f := newFixture(serverKey)

	messages := f.service.Active(testClient)
	require.Len(t, messages, 1)
	assert.Equal(t, models.RoleAssistant, messages[0].Role)
	assert.Contains(t, messages[0].Content, "DR Ai")
	assert.NotContains(t, messages[0].Content, "configure a Gemini API key")
}

func TestWelcomeMentionsMissingCredential(t *testing.T) {
	f := newFixture("")

	messages := f.service.Active(testClient)
	require.Len(t, messages, 1)
	assert.Contains(t, messages[0].Content, "configure a Gemini API key")
}

func TestActiveLoadsMostRecentSession(t *testing.T) {
	f := newFixture(serverKey)

	saved := []models.Message{
		{ID: "m1", Role: models.RoleUser, Content: "old prompt", Timestamp: time.Now()},
		{ID: "m2", Role: models.RoleAssistant, Content: "old reply", Timestamp: time.Now()},
	}
	require.NoError(t, f.history.SaveSession(testClient, saved))

	messages := f.service.Active(testClient)
	require.Len(t, messages, 2)
	assert.Equal(t, "old prompt", messages[0].Content)
}

func TestSubmitHappyPath(t *testing.T) {
	f := newFixture(serverKey)

	messages, err := f.service.Submit(context.Background(), testClient, "build me a todo app", nil)
	require.NoError(t, err)

	// приветствие + вопрос + ответ
	require.Len(t, messages, 3)
	assert.Equal(t, models.RoleUser, messages[1].Role)
	assert.Equal(t, "build me a todo app", messages[1].Content)
	assert.Equal(t, models.RoleAssistant, messages[2].Role)
	assert.Equal(t, "generated reply", messages[2].Content)

	sessions := f.history.LoadSessions(testClient)
	require.Len(t, sessions, 1)
	assert.Len(t, sessions[0].Messages, 3)
}

func TestSubmitRejectsEmptyPrompt(t *testing.T) {
	f := newFixture(serverKey)

	_, err := f.service.Submit(context.Background(), testClient, "   ", nil)
	assert.ErrorIs(t, err, ErrEmptyPrompt)
	assert.Equal(t, 0, f.generator.callCount())
}

func TestSubmitImageOnlyUsesPlaceholder(t *testing.T) {
	f := newFixture(serverKey)

	image := &models.InlineImage{MimeType: "image/png", Data: "aWYgbm90IG5vdw=="}
	messages, err := f.service.Submit(context.Background(), testClient, "", image)
	require.NoError(t, err)

	require.Len(t, messages, 3)
	assert.Equal(t, imagePlaceholder, messages[1].Content)
	require.NotNil(t, messages[1].Image)
	assert.Equal(t, imagePlaceholder, f.generator.lastPrompt)
	assert.NotNil(t, f.generator.lastImage)
}

func TestNoCredentialMeansNoNetworkCall(t *testing.T) {
	f := newFixture("")

	messages, err := f.service.Submit(context.Background(), testClient, "hello", nil)
	require.NoError(t, err)

	assert.Equal(t, 0, f.generator.callCount(), "generate must not be called without a credential")
	assert.Equal(t, gemini.NoCredentialMessage, messages[len(messages)-1].Content)
}

func TestSubmitErrorAppendsAssistantTurn(t *testing.T) {
	f := newFixture(serverKey)
	f.generator.err = &gemini.Error{
		Kind:    gemini.KindRateLimited,
		Message: "Rate limit exceeded. Please wait a moment before trying again.",
	}

	messages, err := f.service.Submit(context.Background(), testClient, "hello", nil)
	require.NoError(t, err, "generation failure is rendered, not propagated")

	last := messages[len(messages)-1]
	assert.Equal(t, models.RoleAssistant, last.Role)
	assert.Contains(t, last.Content, "Rate limit exceeded")

	// неудачный обмен сам по себе не сохраняется
	assert.Empty(t, f.history.LoadSessions(testClient))

	// но остаётся в памяти и попадает в следующий успешный слепок
	f.generator.err = nil
	_, err = f.service.Submit(context.Background(), testClient, "try again", nil)
	require.NoError(t, err)

	sessions := f.history.LoadSessions(testClient)
	require.Len(t, sessions, 1)

	var found bool
	for _, msg := range sessions[0].Messages {
		if msg.Content == last.Content {
			found = true
		}
	}
	assert.True(t, found, "error turn stays in the conversation replay")
}

func TestSingleInFlightRequest(t *testing.T) {
	f := newFixture(serverKey)
	f.generator.gate = make(chan struct{})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := f.service.Submit(context.Background(), testClient, "first", nil)
		assert.NoError(t, err)
	}()

	require.Eventually(t, func() bool {
		return f.service.State(testClient) == StateAwaiting
	}, time.Second, 5*time.Millisecond)

	_, err := f.service.Submit(context.Background(), testClient, "second", nil)
	assert.ErrorIs(t, err, ErrInFlight)

	close(f.generator.gate)
	<-done

	assert.Equal(t, StateIdle, f.service.State(testClient))
	assert.Equal(t, 1, f.generator.callCount())
}

func TestNewChatDiscardsLateResult(t *testing.T) {
	f := newFixture(serverKey)
	f.generator.gate = make(chan struct{})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := f.service.Submit(context.Background(), testClient, "outdated question", nil)
		assert.NoError(t, err)
	}()

	require.Eventually(t, func() bool {
		return f.service.State(testClient) == StateAwaiting
	}, time.Second, 5*time.Millisecond)

	fresh := f.service.NewChat(testClient)
	require.Len(t, fresh, 1)

	close(f.generator.gate)
	<-done

	// запоздавший ответ не должен попасть в новый диалог
	messages := f.service.Active(testClient)
	require.Len(t, messages, 1)
	assert.Equal(t, models.RoleAssistant, messages[0].Role)

	assert.Empty(t, f.history.LoadSessions(testClient), "stale exchange must not be persisted")
}

func TestNewChatKeepsHistory(t *testing.T) {
	f := newFixture(serverKey)

	_, err := f.service.Submit(context.Background(), testClient, "hello", nil)
	require.NoError(t, err)
	require.Len(t, f.history.LoadSessions(testClient), 1)

	f.service.NewChat(testClient)
	assert.Len(t, f.history.LoadSessions(testClient), 1, "new chat must not delete saved sessions")
}

func TestMessageIDsAreUniqueAndOrdered(t *testing.T) {
	f := newFixture(serverKey)

	messages, err := f.service.Submit(context.Background(), testClient, "hello", nil)
	require.NoError(t, err)
	_, err = f.service.Submit(context.Background(), testClient, "again", nil)
	require.NoError(t, err)

	all := f.service.Active(testClient)
	require.Greater(t, len(all), len(messages)-1)

	seen := make(map[string]bool)
	for i, msg := range all {
		assert.False(t, seen[msg.ID], "duplicate message id %s", msg.ID)
		seen[msg.ID] = true
		if i > 0 {
			assert.False(t, msg.Timestamp.Before(all[i-1].Timestamp))
		}
	}
}
