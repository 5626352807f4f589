// Package chat - клиент языковой модели для финансового ассистента Ruby.
//
// Session принадлежит вызывающей стороне, глобального состояния чата нет.
// Ответ приходит последовательностью фрагментов текста, которая прерывается,
// когда вызывающий перестает ее читать или отменяется контекст.
package chat

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cloud-ru/sky-financial-go/internal/config"
)

// Role - автор сообщения
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// FallbackReply отдается вместо ошибки, если модель недоступна
const FallbackReply = "I'm having a little trouble connecting to the financial database right now. Please try again in a moment."

// WelcomeText открывает каждую переписку
const WelcomeText = "Namaste! I'm **Ruby**, your personal financial assistant. Ask me about SIPs, Loans, Tax planning, or any other financial topic!"

// SystemInstruction задает роль ассистента
const SystemInstruction = `You are Ruby, a friendly, professional, and highly knowledgeable Indian Financial Advisor.

Your expertise covers:
1. Indian investment instruments (SIP, Mutual Funds, PPF, NPS, FD, RD, Stocks).
2. Indian Taxation (Income Tax slabs, Old vs New Regime, Tax saving under 80C, 80D, etc.).
3. Loans (Home Loan, EMI calculations, RBI Repo rates).
4. General financial planning for Indian families.

App Context:
- The user is using "Sky Financial", which has a "Tax Savings" calculator that compares Old vs New Regime (FY 2024-25) using standard deductions (75k for New, 50k for Old). If they ask about tax calculation discrepancies, refer to this context.

Specific Instructions:
- If the user asks for a contact number, phone number, or how to contact support/admin, YOU MUST REPLY with: "You can reach us at email: skyrisinvestment@gmail.com". Do not provide any other phone number.

Personality traits:
- Helpful, polite, and encouraging.
- You explain complex financial terms in simple English.
- You ALWAYS use formatting like bullet points, bold text for emphasis.
- You use the Indian Rupee symbol (₹) and lakhs/crores format where appropriate.

Constraints:
- If asked about non-financial topics, politely decline and steer the conversation back to finance.
- Do not provide specific "buy/sell" stock recommendations. Instead, explain how to analyze a stock or the concept of diversification.
- Always include a disclaimer that you are an AI and this is for informational purposes only, not legal financial advice.`

// ErrNoAPIKey возвращается, если ключ API не задан
var ErrNoAPIKey = errors.New("chat: API key is not configured")

// Message - одно сообщение переписки
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Welcome возвращает приветствие перед первым вопросом
func Welcome() Message {
	return Message{ID: "welcome", Role: RoleModel, Text: WelcomeText, Timestamp: time.Now()}
}

// Client получает потоковые ответы от Gemini REST API
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient создает клиента; cfg.Timeout ограничивает ожидание заголовков ответа,
// но не чтение потока
func NewClient(cfg config.ChatConfig, logger *zap.Logger) *Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = cfg.Timeout
	return &Client{
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Transport: transport,
		},
		logger: logger,
	}
}

// Session хранит историю одного диалога, которую видит модель
type Session struct {
	client *Client
	// sendMu выстраивает вопросы одной сессии в очередь
	sendMu sync.Mutex
	// mu защищает history и не удерживается во время потока
	mu      sync.Mutex
	history []Message
}

// NewSession начинает пустой диалог
func (c *Client) NewSession() *Session {
	return &Session{client: c}
}

// History возвращает копию истории, старые сообщения первыми
func (s *Session) History() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.history))
	copy(out, s.history)
	return out
}

// Send отправляет text и отдает ответ модели по фрагментам.
// При сбое связи отдается FallbackReply, ошибкой считается только отмена контекста.
// Вопрос и ответ попадают в историю после полного получения ответа.
func (s *Session) Send(ctx context.Context, text string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		s.sendMu.Lock()
		defer s.sendMu.Unlock()

		user := Message{ID: uuid.NewString(), Role: RoleUser, Text: text, Timestamp: time.Now()}
		s.mu.Lock()
		turns := append(append([]Message(nil), s.history...), user)
		s.mu.Unlock()

		var reply strings.Builder
		stopped := false
		err := s.client.stream(ctx, turns, func(chunk string) bool {
			reply.WriteString(chunk)
			if !yield(chunk, nil) {
				stopped = true
				return false
			}
			return true
		})
		if stopped {
			return
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				yield("", ctxErr)
				return
			}
			s.client.logger.Error("Error communicating with Ruby", zap.Error(err))
			yield(FallbackReply, nil)
			return
		}

		s.mu.Lock()
		s.history = append(s.history, user, Message{
			ID:        uuid.NewString(),
			Role:      RoleModel,
			Text:      reply.String(),
			Timestamp: time.Now(),
		})
		s.mu.Unlock()
	}
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generateRequest struct {
	SystemInstruction content   `json:"systemInstruction"`
	Contents          []content `json:"contents"`
}

type streamChunk struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// stream отправляет диалог и вызывает onText на каждый фрагмент,
// пока сервер не закроет поток или onText не вернет false
func (c *Client) stream(ctx context.Context, turns []Message, onText func(string) bool) error {
	if c.apiKey == "" {
		return ErrNoAPIKey
	}

	reqBody := generateRequest{
		SystemInstruction: content{Parts: []part{{Text: SystemInstruction}}},
	}
	for _, m := range turns {
		reqBody.Contents = append(reqBody.Contents, content{Role: string(m.Role), Parts: []part{{Text: m.Text}}})
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/models/%s:streamGenerateContent?alt=sse", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		data, ok := strings.CutPrefix(line, "data:")
		if !ok {
			continue
		}

		var chunk streamChunk
		if err := json.Unmarshal([]byte(strings.TrimSpace(data)), &chunk); err != nil {
			return fmt.Errorf("decode stream chunk: %w", err)
		}
		if chunk.Error != nil {
			return fmt.Errorf("API error (code %d): %s", chunk.Error.Code, chunk.Error.Message)
		}
		for _, cand := range chunk.Candidates {
			for _, p := range cand.Content.Parts {
				if p.Text == "" {
					continue
				}
				if !onText(p.Text) {
					return nil
				}
			}
		}
	}
	return scanner.Err()
}
