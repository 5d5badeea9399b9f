package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/job-recommender/internal/filtering"
	"github.com/spigell/job-recommender/internal/geo"
	"github.com/spigell/job-recommender/internal/recommend"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var places = map[string]geo.Coordinates{
	"Mumbai": {Latitude: 19.0760, Longitude: 72.8777},
	"Pune":   {Latitude: 18.5204, Longitude: 73.8567},
	"Delhi":  {Latitude: 28.6139, Longitude: 77.2090},
}

func fakeGeocoder() geo.GeocoderFunc {
	return func(_ context.Context, query string) (geo.Lookup, error) {
		if c, ok := places[query]; ok {
			return geo.Found(c), nil
		}
		return geo.NotFound, nil
	}
}

const resumeBody = `{
  "Name": "Asha",
  "Current-Location": "Mumbai",
  "Skills": ["Go", "Docker", "SQL"],
  "Total-Experience": 4,
  "Education": [{"Degree": "B.E.", "Institute": "COEP", "Start": 2012, "End": 2016}],
  "Expected-Salary": 1200000,
  "Notice_Period": 30
}`

const jobsBody = `[
  {"job_title": "Backend Engineer", "company_name": "Acme", "location": "Pune", "skills": ["Go", "Docker"], "experience": "3-5 years", "salary": "10,00,000 - 15,00,000"},
  {"job_title": "Frontend Engineer", "company_name": "Globex", "location": "Delhi", "skills": ["React", "CSS"], "experience": "1-3 years", "salary": "6,00,000 - 9,00,000"},
  {"job_title": "Data Engineer", "company_name": "Initech", "location": "Pune", "skills": ["SQL", "Spark"], "experience": "4-6 years", "salary": "12,00,000 - 18,00,000", "required_joining_time": 15}
]`

type testServer struct {
	router *gin.Engine
	logs   *observer.ObservedLogs
}

func newTestServer(t *testing.T, filters *filtering.Config) testServer {
	t.Helper()

	core, logs := observer.New(zap.InfoLevel)
	log := zap.New(core)

	h := NewHandler(Options{
		Ranker:  recommend.New(fakeGeocoder(), recommend.WithLogger(log)),
		Weights: recommend.DefaultWeights(),
		Filters: filters,
		Logger:  log,
	})

	return testServer{router: NewRouter(h, log), logs: logs}
}

func (s testServer) post(t *testing.T, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decodeRecommendations(t *testing.T, rec *httptest.ResponseRecorder) []recommend.Recommendation {
	t.Helper()

	var out []recommend.Recommendation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestInitialRecommend(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := srv.post(t, "/initial_recommend_jobs/", `{"resume": `+resumeBody+`, "jobs": `+jobsBody+`}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))

	recs := decodeRecommendations(t, rec)
	require.Len(t, recs, 3)
	assert.Equal(t, "Backend Engineer", recs[0].Title)
	for i := 1; i < len(recs); i++ {
		assert.GreaterOrEqual(t, recs[i-1].Score, recs[i].Score)
	}

	for _, r := range recs {
		for _, v := range []float64{r.SkillScore, r.ExperienceScore, r.LocationScore, r.SalaryScore, r.NoticePeriodScore} {
			assert.GreaterOrEqual(t, v, 0.0)
			assert.LessOrEqual(t, v, 1.0)
		}
		assert.False(t, r.Liked)
	}

	assert.Equal(t, 1, srv.logs.FilterMessage("jobs ranked").Len())
	assert.Equal(t, 1, srv.logs.FilterMessage("api request").Len())
}

func TestUpdateRecommendAddsLikedBonus(t *testing.T) {
	srv := newTestServer(t, nil)

	initial := decodeRecommendations(t, srv.post(t, "/initial_recommend_jobs/",
		`{"resume": `+resumeBody+`, "jobs": `+jobsBody+`}`))

	rec := srv.post(t, "/update_recommend_jobs/",
		`{"resume": `+resumeBody+`, "jobs": `+jobsBody+`, "liked_job_titles": ["Frontend Engineer", "Unknown"]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decodeRecommendations(t, rec)

	scoreOf := func(recs []recommend.Recommendation, title string) (float64, bool) {
		for _, r := range recs {
			if r.Title == title {
				return r.Score, r.Liked
			}
		}
		t.Fatalf("%s not found", title)
		return 0, false
	}

	before, _ := scoreOf(initial, "Frontend Engineer")
	after, liked := scoreOf(updated, "Frontend Engineer")
	assert.True(t, liked)
	assert.InDelta(t, before+recommend.DefaultWeights().LikedBonus, after, 1e-9)

	before, _ = scoreOf(initial, "Backend Engineer")
	after, liked = scoreOf(updated, "Backend Engineer")
	assert.False(t, liked)
	assert.InDelta(t, before, after, 1e-9)
}

func TestRecommendWeightsOverride(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := srv.post(t, "/initial_recommend_jobs/",
		`{"resume": `+resumeBody+`, "jobs": `+jobsBody+`, "weights": {"top_n": 1}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	recs := decodeRecommendations(t, rec)
	require.Len(t, recs, 1)
	assert.Equal(t, "Backend Engineer", recs[0].Title)
}

func TestRecommendFiltersExcludedJobs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "excluded.json")
	_, err := filtering.AddToFile(path, recommend.Job{Title: "Data Engineer", Company: "Initech"})
	require.NoError(t, err)

	srv := newTestServer(t, &filtering.Config{Companies: []string{"globex"}, ExcludeFile: path})

	rec := srv.post(t, "/initial_recommend_jobs/", `{"resume": `+resumeBody+`, "jobs": `+jobsBody+`}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	recs := decodeRecommendations(t, rec)
	require.Len(t, recs, 1)
	assert.Equal(t, "Backend Engineer", recs[0].Title)
}

func TestRecommendEmptyJobs(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := srv.post(t, "/initial_recommend_jobs/", `{"resume": `+resumeBody+`, "jobs": []}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestRecommendBadRequests(t *testing.T) {
	srv := newTestServer(t, nil)

	cases := map[string]struct {
		path string
		body string
	}{
		"malformed json":      {path: "/initial_recommend_jobs/", body: `{"resume":`},
		"missing jobs":        {path: "/initial_recommend_jobs/", body: `{"resume": ` + resumeBody + `}`},
		"missing liked":       {path: "/update_recommend_jobs/", body: `{"resume": ` + resumeBody + `, "jobs": []}`},
		"negative weight":     {path: "/initial_recommend_jobs/", body: `{"resume": ` + resumeBody + `, "jobs": [], "weights": {"skills": -1}}`},
		"bad weight type":     {path: "/initial_recommend_jobs/", body: `{"resume": ` + resumeBody + `, "jobs": [], "weights": {"top_n": "five"}}`},
		"wrong resume fields": {path: "/initial_recommend_jobs/", body: `{"resume": {"Skills": {"a": 1}}, "jobs": []}`},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			rec := srv.post(t, tc.path, tc.body)
			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, "INVALID_REQUEST", resp.Code)
			assert.NotEmpty(t, resp.Details)
		})
	}
}

type failingRanker struct{}

func (failingRanker) Rank(context.Context, recommend.Candidate, []recommend.Job, recommend.LikedSet, recommend.Weights) ([]recommend.ScoredJob, error) {
	return nil, errors.New("engine down")
}

func TestRecommendRankingFailure(t *testing.T) {
	h := NewHandler(Options{Ranker: failingRanker{}, Weights: recommend.DefaultWeights()})
	router := NewRouter(h, nil)

	req := httptest.NewRequest(http.MethodPost, "/initial_recommend_jobs/",
		bytes.NewBufferString(`{"resume": `+resumeBody+`, "jobs": `+jobsBody+`}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "RANKING_ERROR")
}

type explainerFunc func(recommend.ScoredJob) (string, error)

func (f explainerFunc) Explain(_ context.Context, _ recommend.Candidate, job recommend.ScoredJob) (string, error) {
	return f(job)
}

func TestRecommendWithExplanations(t *testing.T) {
	h := NewHandler(Options{
		Ranker:  recommend.New(fakeGeocoder()),
		Weights: recommend.DefaultWeights(),
		Explainer: explainerFunc(func(job recommend.ScoredJob) (string, error) {
			if job.Job.Company == "Globex" {
				return "", errors.New("quota")
			}
			return "fits " + job.Job.Title, nil
		}),
	})
	router := NewRouter(h, nil)

	req := httptest.NewRequest(http.MethodPost, "/initial_recommend_jobs/",
		bytes.NewBufferString(`{"resume": `+resumeBody+`, "jobs": `+jobsBody+`}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	for _, r := range decodeRecommendations(t, rec) {
		if r.Company == "Globex" {
			assert.Empty(t, r.Explanation)
			continue
		}
		assert.Equal(t, "fits "+r.Title, r.Explanation)
	}
}

func TestHealthAndRequestID(t *testing.T) {
	srv := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "fixed-id")
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "fixed-id", rec.Header().Get(requestIDHeader))
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)

	entries := srv.logs.FilterMessage("api request").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "fixed-id", entries[0].ContextMap()["request_id"])
}

func TestRecoveryReturns500(t *testing.T) {
	r := gin.New()
	r.Use(Recovery(nil), RequestLogger(nil))
	r.GET("/panic", func(*gin.Context) { panic("boom") })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "INTERNAL_ERROR")
}

func TestRunStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		done <- Run(ctx, "127.0.0.1:0", http.NotFoundHandler(), nil)
	}()

	cancel()
	assert.NoError(t, <-done)
}
