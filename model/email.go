package model

// EmailKind classifies a job-related email.
type EmailKind string

const (
	EmailInterview EmailKind = "interview"
	EmailRejection EmailKind = "rejection"
	EmailOffer     EmailKind = "offer"
	EmailNone      EmailKind = ""
)

// EmailMessage is one inbox entry extracted by the device agent.
type EmailMessage struct {
	Subject string `json:"subject"`
	Sender  string `json:"sender"`
	Snippet string `json:"snippet"`
}

// EmailSearchResults is the structured output of the inbox search goal.
type EmailSearchResults struct {
	Emails []EmailMessage `json:"emails"`
}
