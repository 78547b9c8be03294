package entity

// Reason причина, по которой идентификатор не дал аннотации.
type Reason string

const (
	ReasonAccepted           Reason = "accepted"
	ReasonNotVerifiable      Reason = "not_verifiable"
	ReasonAssetMissing       Reason = "asset_missing"
	ReasonMetadataMissing    Reason = "metadata_missing"
	ReasonMetadataIncomplete Reason = "metadata_incomplete"
	ReasonMetadataUnreadable Reason = "metadata_unreadable"
	ReasonFetchFailed        Reason = "fetch_failed"
	ReasonRejected           Reason = "rejected"
)

// Transient сообщает, что причина считается сбоем и учитывается счётчиком ошибок сканера.
func (r Reason) Transient() bool {
	return r == ReasonFetchFailed || r == ReasonMetadataUnreadable
}

// Resolution результат разрешения одного идентификатора.
type Resolution struct {
	Record  ROIRecord
	Trusted [2]float64
	Reason  Reason
	Err     error
}

// Accepted сообщает, что аннотация найдена и прошла сверку.
func (r Resolution) Accepted() bool {
	return r.Reason == ReasonAccepted
}

// Absent результат без аннотации.
func Absent(reason Reason, err error) Resolution {
	return Resolution{Reason: reason, Err: err}
}
