package trivia_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Souma061/quizmaster/internal/trivia"
)

func TestClient_FetchQuestions(t *testing.T) {
	var gotQuery string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api.php", r.URL.Path)
		gotQuery = r.URL.RawQuery

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"response_code": 0,
			"results": [
				{
					"question": "What&#039;s the capital of France?",
					"correct_answer": "Paris",
					"incorrect_answers": ["Berlin", "Madrid", "Rome"]
				},
				{
					"question": "Who wrote &quot;Hamlet&quot;?",
					"correct_answer": "Shakespeare",
					"incorrect_answers": ["Dickens", "Austen", "Twain"]
				}
			]
		}`))
	}))
	defer ts.Close()

	c := trivia.NewClient(trivia.Config{BaseURL: ts.URL})

	questions, err := c.FetchQuestions(context.Background(), 2, "9", "easy")
	require.NoError(t, err)
	require.Len(t, questions, 2)

	require.Contains(t, gotQuery, "amount=2")
	require.Contains(t, gotQuery, "type=multiple")
	require.Contains(t, gotQuery, "category=9")
	require.Contains(t, gotQuery, "difficulty=easy")

	q := questions[0]
	require.Equal(t, "What's the capital of France?", q.Text, "entities are decoded")
	require.Equal(t, "Paris", q.CorrectAnswer)
	require.Len(t, q.Options, 4)
	require.Contains(t, q.Options, "Paris", "correct answer is always among the options")
	require.ElementsMatch(t, []string{"Paris", "Berlin", "Madrid", "Rome"}, q.Options)

	require.Equal(t, `Who wrote "Hamlet"?`, questions[1].Text)
}

func TestClient_FetchQuestions_OmitsAnyFilters(t *testing.T) {
	var gotQuery string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`{"response_code": 0, "results": []}`))
	}))
	defer ts.Close()

	c := trivia.NewClient(trivia.Config{BaseURL: ts.URL})

	_, err := c.FetchQuestions(context.Background(), 10, "any", "any")
	require.NoError(t, err)
	require.NotContains(t, gotQuery, "category=")
	require.NotContains(t, gotQuery, "difficulty=")
}

func TestClient_FetchQuestions_NoResults(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Response code 1: the API has no questions for the query.
		_, _ = w.Write([]byte(`{"response_code": 1, "results": []}`))
	}))
	defer ts.Close()

	c := trivia.NewClient(trivia.Config{BaseURL: ts.URL})

	questions, err := c.FetchQuestions(context.Background(), 50, "", "")
	require.NoError(t, err)
	require.Empty(t, questions)
}

func TestClient_FetchQuestions_ServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	c := trivia.NewClient(trivia.Config{BaseURL: ts.URL})

	_, err := c.FetchQuestions(context.Background(), 5, "", "")
	require.Error(t, err)
}

func TestClient_SurpriseCategory(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api_category.php", r.URL.Path)
		_, _ = w.Write([]byte(`{"trivia_categories": [
			{"id": 9, "name": "General Knowledge"},
			{"id": 23, "name": "History"},
			{"id": 27, "name": "Animals"}
		]}`))
	}))
	defer ts.Close()

	c := trivia.NewClient(trivia.Config{BaseURL: ts.URL})

	// Excluded categories are never picked while others remain.
	for i := 0; i < 10; i++ {
		cat, err := c.SurpriseCategory(context.Background(), map[int]bool{9: true, 23: true})
		require.NoError(t, err)
		require.Equal(t, 27, cat.ID)
	}

	// With everything excluded the pick falls back to the full list.
	cat, err := c.SurpriseCategory(context.Background(), map[int]bool{9: true, 23: true, 27: true})
	require.NoError(t, err)
	require.Contains(t, []int{9, 23, 27}, cat.ID)
}
