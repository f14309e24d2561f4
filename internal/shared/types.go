package shared

const (
	// candidate kinds emitted by the scanner
	CandidateAccessKeyId string = "access-key-id"
	CandidateIamUserArn  string = "iam-user-arn"
	CandidateIamRoleArn  string = "iam-role-arn"

	// variables for configuring the lambda entry point
	EnvLogIncomingEvent string = "LOG_INCOMING_EVENT"
)

// column headers for the scanner csv report
var ReportHeaders = []string{"source", "line", "match", "kind", "resource type", "account id"}

type Key struct {
	PrimaryKey string `json:"primaryKey"`
	SortKey    string `json:"sortKey"`
}

func (k *Key) ToString() string {
	return k.PrimaryKey + "||" + k.SortKey
}
