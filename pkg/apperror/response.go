package apperror

// Envelope はすべてのエラーレスポンスで共通のJSON形式。
type Envelope struct {
	// Status はHTTPステータスコード。
	Status int `json:"status"`
	// Message は利用者向けのメッセージ。
	Message string `json:"message"`
	// Code は機械判別用の識別子。
	Code Code `json:"code"`
	// RequestID はログと突き合わせるためのリクエストID。
	RequestID string `json:"request_id,omitempty"`
	// Details は入力検証エラーの詳細。
	Details []FieldError `json:"details,omitempty"`
}

// NewEnvelope は*Errorからレスポンスエンベロープを生成する。
// 原因エラー（Err）は含めない。
func NewEnvelope(e *Error, requestID string) Envelope {
	return Envelope{
		Status:    e.Status(),
		Message:   e.Message,
		Code:      e.Code,
		RequestID: requestID,
		Details:   e.Details,
	}
}
