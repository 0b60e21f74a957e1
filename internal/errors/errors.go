// internal/errors/errors.go
package appErrors

import (
    "errors"
    "fmt"
)

// ErrCampaignNotFound is a sentinel error
type ErrCampaignNotFound struct {
    CampaignID string
}

func (e *ErrCampaignNotFound) Error() string {
    return fmt.Sprintf("campaign %q not found", e.CampaignID)
}

// Helper constructor
func NewCampaignNotFound(id string) error {
    return &ErrCampaignNotFound{CampaignID: id}
}

type ErrEnrollmentNotFound struct {
    EnrollmentID string
}

func (e *ErrEnrollmentNotFound) Error() string {
    return fmt.Sprintf("enrollment %q not found", e.EnrollmentID)
}

func NewEnrollmentNotFound(id string) error {
    return &ErrEnrollmentNotFound{EnrollmentID: id}
}

// ErrDuplicateActive signals an enroll attempt while an active enrollment
// already exists for the same (campaign, candidate) pair.
type ErrDuplicateActive struct {
    CampaignID  string
    CandidateID string
}

func (e *ErrDuplicateActive) Error() string {
    return fmt.Sprintf("candidate %q already actively enrolled in campaign %q", e.CandidateID, e.CampaignID)
}

func NewDuplicateActive(campaignID, candidateID string) error {
    return &ErrDuplicateActive{CampaignID: campaignID, CandidateID: candidateID}
}

// ErrBuiltinCampaign rejects deletion of a seeded (non-custom) campaign.
type ErrBuiltinCampaign struct {
    CampaignID string
}

func (e *ErrBuiltinCampaign) Error() string {
    return fmt.Sprintf("campaign %q is built-in and cannot be deleted", e.CampaignID)
}

func NewBuiltinCampaign(id string) error {
    return &ErrBuiltinCampaign{CampaignID: id}
}

// ErrConfiguration flags a bad campaign definition at evaluation time, e.g.
// an unknown condition name. Callers must fail closed on it.
type ErrConfiguration struct {
    Detail string
}

func (e *ErrConfiguration) Error() string {
    return fmt.Sprintf("configuration error: %s", e.Detail)
}

func NewConfiguration(format string, args ...any) error {
    return &ErrConfiguration{Detail: fmt.Sprintf(format, args...)}
}

// Delivery error kinds
const (
    DeliveryTransient = "transient"
    DeliveryPermanent = "permanent"
)

// DeliveryError is a failed dispatch. Transient failures are eligible for
// retry on a later tick; permanent ones are recorded and the cursor advances.
type DeliveryError struct {
    Kind   string
    Reason string
}

func (e *DeliveryError) Error() string {
    return fmt.Sprintf("%s delivery failure: %s", e.Kind, e.Reason)
}

func NewTransientDelivery(format string, args ...any) error {
    return &DeliveryError{Kind: DeliveryTransient, Reason: fmt.Sprintf(format, args...)}
}

func NewPermanentDelivery(format string, args ...any) error {
    return &DeliveryError{Kind: DeliveryPermanent, Reason: fmt.Sprintf(format, args...)}
}

func IsTransientDelivery(err error) bool {
    var de *DeliveryError
    return errors.As(err, &de) && de.Kind == DeliveryTransient
}

func IsPermanentDelivery(err error) bool {
    var de *DeliveryError
    return errors.As(err, &de) && de.Kind == DeliveryPermanent
}

func IsNotFound(err error) bool {
    var c *ErrCampaignNotFound
    var e *ErrEnrollmentNotFound
    return errors.As(err, &c) || errors.As(err, &e)
}

func IsDuplicateActive(err error) bool {
    var d *ErrDuplicateActive
    return errors.As(err, &d)
}

func IsConfiguration(err error) bool {
    var c *ErrConfiguration
    return errors.As(err, &c)
}
