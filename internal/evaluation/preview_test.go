package evaluation

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestValidateReportsEveryMissingField(t *testing.T) {
	cases := []struct {
		name    string
		userIDs []int
		topicID *int
		want    []Field
	}{
		{"no students", []int{}, intPtr(5), []Field{FieldStudents}},
		{"no topic", []int{1, 2}, nil, []Field{FieldTopic}},
		{"nothing selected", nil, nil, []Field{FieldStudents, FieldTopic}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.userIDs, tc.topicID)
			require.Error(t, err)

			var verrs ValidationErrors
			require.True(t, errors.As(err, &verrs))
			assert.Len(t, verrs, len(tc.want))
			assert.Equal(t, tc.want, verrs.Fields())
			for _, field := range tc.want {
				assert.True(t, verrs.Has(field))
			}
		})
	}
}

func TestValidatePasses(t *testing.T) {
	require.NoError(t, Validate([]int{3}, intPtr(0)))
}

func TestBuildResolvesWeek(t *testing.T) {
	req := Build([]int{4, 2}, intPtr(9), "2024-W05")

	assert.Equal(t, []int{4, 2}, req.UserIDs)
	require.NotNil(t, req.TopicID)
	assert.Equal(t, 9, *req.TopicID)
	assert.Equal(t, []int{9}, req.TopicIDs)
	require.True(t, req.HasPeriod())
	assert.Equal(t, "2024-01-29", req.PeriodStart.String())
	assert.Equal(t, "2024-02-04", req.PeriodEnd.String())

	payload, err := json.Marshal(req)
	require.NoError(t, err)
	assert.JSONEq(t, `{"user_ids":[4,2],"topic_id":9,"topic_ids":[9],"period_start":"2024-01-29","period_end":"2024-02-04"}`, string(payload))
}

func TestBuildOmitsPeriodForMalformedWeek(t *testing.T) {
	for _, week := range []string{"", "2024-5", "2021-W53", "week five"} {
		req := Build([]int{1}, intPtr(2), week)
		assert.False(t, req.HasPeriod(), week)
		assert.Nil(t, req.PeriodStart, week)
		assert.Nil(t, req.PeriodEnd, week)
	}

	payload, err := json.Marshal(Build([]int{1}, nil, "2024-5"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"user_ids":[1],"topic_id":null,"topic_ids":[],"period_start":null,"period_end":null}`, string(payload))
}

func TestBuildDoesNotMutateInputs(t *testing.T) {
	ids := []int{3, 1, 3, 2}
	topic := intPtr(7)

	req := Build(ids, topic, " 2024-W01 ")
	req.UserIDs[0] = 99
	*req.TopicID = 100

	assert.Equal(t, []int{3, 1, 3, 2}, ids)
	assert.Equal(t, 7, *topic)
	assert.Equal(t, []int{99, 1, 2}, req.UserIDs)
	assert.True(t, req.HasPeriod())
}
