package service_test

import (
    "testing"

    appErrors "github.com/hirestream/outreach-backend/internal/errors"
    "github.com/hirestream/outreach-backend/internal/model"
    "github.com/hirestream/outreach-backend/internal/service"
)

func TestEvaluateCondition(t *testing.T) {
    e := &model.Enrollment{
        CandidateEmail: "alice@example.com",
        CandidatePhone: "",
        Responded:      false,
    }

    cases := []struct {
        name string
        want bool
    }{
        {"", true},
        {model.ConditionNone, true},
        {model.ConditionNoResponse, true},
        {model.ConditionResponded, false},
        {model.ConditionHasEmail, true},
        {model.ConditionHasPhone, false},
    }
    for _, c := range cases {
        got, err := service.EvaluateCondition(c.name, e)
        if err != nil {
            t.Errorf("condition %q: unexpected error %v", c.name, err)
        }
        if got != c.want {
            t.Errorf("condition %q: got %v, want %v", c.name, got, c.want)
        }
    }
}

func TestEvaluateConditionAfterResponse(t *testing.T) {
    e := &model.Enrollment{Responded: true}

    if got, _ := service.EvaluateCondition(model.ConditionNoResponse, e); got {
        t.Errorf("no_response should be false after a response")
    }
    if got, _ := service.EvaluateCondition(model.ConditionResponded, e); !got {
        t.Errorf("responded should be true after a response")
    }
}

func TestEvaluateConditionUnknownFailsClosed(t *testing.T) {
    got, err := service.EvaluateCondition("definitely_not_a_condition", &model.Enrollment{})
    if got {
        t.Errorf("unknown condition must evaluate to false")
    }
    if !appErrors.IsConfiguration(err) {
        t.Errorf("expected configuration error, got %v", err)
    }
}
