package storage

// Store — клиентское key-value хранилище. Каждый браузерный клиент получает
// собственное пространство ключей, как localStorage в пределах origin.
type Store interface {
	Get(clientID, key string) (string, bool, error)
	Set(clientID, key, value string) error
	Delete(clientID, key string) error
}

// Ключи, которые использует ядро. Хранимые значения — JSON-блобы либо строки.
const (
	KeyChatHistory = "dr-ai-chat-history"
	KeyUserAPIKey  = "gemini-api-key"
	KeyProfile     = "dr-ai-profile"
	KeySettings    = "dr-ai-settings"
)
