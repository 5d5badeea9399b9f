package recommend

import (
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRanking() []ScoredJob {
	return []ScoredJob{
		{
			Job:          Job{Title: "Backend Engineer", Company: "Acme", Location: "Pune", Salary: "10,00,000 - 15,00,000", Skills: []string{"Go"}},
			Score:        0.9123,
			Skills:       1,
			Experience:   1,
			Location:     0.5,
			Salary:       1,
			NoticePeriod: 1,
			Liked:        true,
			Explanation:  "Strong Go match.",
		},
		{
			Job:   Job{Title: "Analyst", Location: "Remote"},
			Score: 0.25,
		},
	}
}

func TestRecommendations(t *testing.T) {
	recs := Recommendations(sampleRanking())
	require.Len(t, recs, 2)

	assert.Equal(t, "Backend Engineer", recs[0].Title)
	assert.Equal(t, 0.9123, recs[0].Score)
	assert.Equal(t, 0.5, recs[0].LocationScore)
	assert.True(t, recs[0].Liked)
	assert.NotNil(t, recs[1].Skills)

	b, err := json.Marshal(recs[1])
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(b, &fields))
	assert.Equal(t, []any{}, fields["skills"])
	assert.Contains(t, fields, "overall_similarity_score")
	assert.Contains(t, fields, "notice_period_score")
	assert.NotContains(t, fields, "liked")
	assert.NotContains(t, fields, "explanation")
}

func TestReportByCompany(t *testing.T) {
	report := ReportByCompany(sampleRanking())

	require.Len(t, report["Acme"], 1)
	acme := report["Acme"][0]
	assert.Equal(t, "1", acme["rank"])
	assert.Equal(t, "0.912", acme["score"])
	assert.Equal(t, "true", acme["liked"])
	assert.Equal(t, "Strong Go match.", acme["explanation"])

	require.Len(t, report["(unknown company)"], 1)
	unknown := report["(unknown company)"][0]
	assert.Equal(t, "2", unknown["rank"])
	assert.NotContains(t, unknown, "liked")
}

func TestDumpToTmpFile(t *testing.T) {
	path, err := DumpToTmpFile(sampleRanking())
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.Remove(path) })

	assert.Contains(t, path, "recommendations_")

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var recs []Recommendation
	require.NoError(t, json.Unmarshal(data, &recs))
	assert.Equal(t, Recommendations(sampleRanking()), recs)
}
