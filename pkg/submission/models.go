package submission

import (
	"time"

	"github.com/formrelay/platform/pkg/forms"
	"gorm.io/datatypes"
)

// Record is one accepted submission. It is written once and never updated by
// this service.
type Record struct {
	ID        string         `json:"id" gorm:"primaryKey;type:uuid;column:id"`
	FormID    string         `json:"form_id" gorm:"type:uuid;index;not null;column:form_id"`
	Form      *forms.Form    `json:"-" gorm:"foreignKey:FormID;constraint:OnDelete:CASCADE"`
	Payload   datatypes.JSON `json:"payload" gorm:"type:json;not null;column:payload"`
	IPAddress *string        `json:"ip_address,omitempty" gorm:"size:64;column:ip_address"`
	IsSpam    bool           `json:"is_spam" gorm:"not null;default:false;column:is_spam"`
	CreatedAt time.Time      `json:"created_at" gorm:"index;column:created_at"`
}

func (Record) TableName() string {
	return "submissions"
}
