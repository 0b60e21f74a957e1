// internal/service/condition_evaluator.go
package service

import (
    appErrors "github.com/hirestream/outreach-backend/internal/errors"
    "github.com/hirestream/outreach-backend/internal/model"
)

// EvaluateCondition maps a condition name to a boolean against the
// enrollment's snapshot. Unknown names evaluate to false and return an
// ErrConfiguration: a misconfigured condition must never cause a send or a
// cancellation on its own.
func EvaluateCondition(name string, e *model.Enrollment) (bool, error) {
    switch name {
    case "", model.ConditionNone:
        return true, nil
    case model.ConditionNoResponse:
        return !e.Responded, nil
    case model.ConditionResponded:
        return e.Responded, nil
    case model.ConditionHasPhone:
        return e.CandidatePhone != "", nil
    case model.ConditionHasEmail:
        return e.CandidateEmail != "", nil
    }
    return false, appErrors.NewConfiguration("unknown condition %q", name)
}
