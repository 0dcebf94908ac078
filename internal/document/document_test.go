package document

import (
	"testing"

	"github.com/stretchr/testify/suite"

	dErrors "docseal/pkg/domain-errors"
)

type DocumentSuite struct {
	suite.Suite
}

func TestDocumentSuite(t *testing.T) {
	suite.Run(t, new(DocumentSuite))
}

func (s *DocumentSuite) TestParseKind() {
	for _, valid := range []string{"identity_card", "license", "exam_result"} {
		kind, err := ParseKind(valid)
		s.NoError(err)
		s.True(kind.Valid())
	}

	_, err := ParseKind("passport")
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func (s *DocumentSuite) TestCanonicalFieldOrderIsFixed() {
	fields := KindIdentityCard.CanonicalFields()
	keys := make([]string, len(fields))
	for i, f := range fields {
		keys[i] = f.Key
	}
	s.Equal([]string{"idNumber", "fullName", "dateOfBirth", "issuedDate"}, keys)
}

func (s *DocumentSuite) TestNaturalIDField() {
	s.Equal("idNumber", KindIdentityCard.NaturalIDField())
	s.Equal("licenseNumber", KindLicense.NaturalIDField())
	s.Equal("indexNumber", KindExamResult.NaturalIDField())
}

func (s *DocumentSuite) TestNormalize() {
	s.Equal("912345678V", Normalize("  912345678v "))
	s.Equal("JOHN DOE", Normalize("john doe"))
	s.Equal("", Normalize("   "))
}

func (s *DocumentSuite) TestRecordNaturalID() {
	rec := &Record{
		Kind:   KindIdentityCard,
		Fields: map[string]string{"idNumber": " 912345678v "},
	}
	s.Equal("912345678V", rec.NaturalID())
}
