package trivia

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Souma061/quizmaster/internal/domain"
	"github.com/Souma061/quizmaster/internal/errors"
)

const (
	DefaultBaseURL = "https://opentdb.com"

	// OpenTDB caps a single request at 50 questions.
	MaxAmount = 50

	defaultTimeout = 10 * time.Second
)

type Config struct {
	BaseURL string
	Client  *http.Client
}

// Client fetches multiple-choice questions from an OpenTDB-compatible API.
type Client struct {
	base string
	hc   *http.Client
}

func NewClient(c Config) *Client {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Client == nil {
		c.Client = &http.Client{Timeout: defaultTimeout}
	}

	return &Client{
		base: c.BaseURL,
		hc:   c.Client,
	}
}

type questionResponse struct {
	ResponseCode int `json:"response_code"`
	Results      []struct {
		Question         string   `json:"question"`
		CorrectAnswer    string   `json:"correct_answer"`
		IncorrectAnswers []string `json:"incorrect_answers"`
	} `json:"results"`
}

// FetchQuestions requests up to amount questions. Category is an opaque API
// category ID, omitted when "any" or not a positive number; difficulty is
// omitted when "any". A non-success response code yields an empty slice, not
// an error, matching the API's "no results" semantics.
func (c *Client) FetchQuestions(ctx context.Context, amount int, category, difficulty string) ([]domain.Question, error) {
	q := url.Values{}
	q.Set("amount", strconv.Itoa(amount))
	q.Set("type", "multiple")
	if id, err := strconv.Atoi(category); err == nil && id > 0 {
		q.Set("category", category)
	}
	if difficulty != "" && difficulty != "any" {
		q.Set("difficulty", difficulty)
	}

	var resp questionResponse
	if err := c.get(ctx, "/api.php", q, &resp); err != nil {
		return nil, err
	}

	if resp.ResponseCode != 0 {
		return nil, nil
	}

	questions := make([]domain.Question, 0, len(resp.Results))
	for _, r := range resp.Results {
		opts := make([]string, 0, len(r.IncorrectAnswers)+1)
		for _, a := range r.IncorrectAnswers {
			opts = append(opts, html.UnescapeString(a))
		}
		answer := html.UnescapeString(r.CorrectAnswer)
		opts = append(opts, answer)
		rand.Shuffle(len(opts), func(i, j int) {
			opts[i], opts[j] = opts[j], opts[i]
		})

		questions = append(questions, domain.Question{
			Text:          html.UnescapeString(r.Question),
			Options:       opts,
			CorrectAnswer: answer,
		})
	}

	return questions, nil
}

type Category struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type categoryResponse struct {
	TriviaCategories []Category `json:"trivia_categories"`
}

// Categories lists the API's trivia categories.
func (c *Client) Categories(ctx context.Context) ([]Category, error) {
	var resp categoryResponse
	if err := c.get(ctx, "/api_category.php", nil, &resp); err != nil {
		return nil, err
	}

	return resp.TriviaCategories, nil
}

// SurpriseCategory picks a random category whose ID is not in exclude.
// When every category is excluded the pick falls back to the full list.
func (c *Client) SurpriseCategory(ctx context.Context, exclude map[int]bool) (Category, error) {
	cats, err := c.Categories(ctx)
	if err != nil {
		return Category{}, err
	}

	candidates := make([]Category, 0, len(cats))
	for _, cat := range cats {
		if !exclude[cat.ID] {
			candidates = append(candidates, cat)
		}
	}
	if len(candidates) == 0 {
		candidates = cats
	}
	if len(candidates) == 0 {
		return Category{}, errors.New(errors.CodeUnavailable, errors.WithMessagef("trivia: no categories available"))
	}

	return candidates[rand.IntN(len(candidates))], nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	u := c.base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("trivia: new request: %w", err)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("trivia: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("trivia: unexpected status %d from %s", resp.StatusCode, path)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("trivia: decode response: %w", err)
	}

	return nil
}
