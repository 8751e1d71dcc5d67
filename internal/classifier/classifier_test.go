package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docverify/internal/config"
	"docverify/internal/model"
)

const passportText = `REPUBLIC OF TESTLAND
PASSPORT
Passport No: X1234567A
Surname: DOE
Given Names: JOHN
Nationality: TESTLANDER
Date of Expiry: 2031-05-01
P<TSTDOE<<JOHN<<<<<<<<<<<<<<<<<<<<<<<<<<<<<<
X1234567A7TST8001014M3105013<<<<<<<<<<<<<<06`

const licenseText = `DRIVING LICENCE
DL No: D-99887766
Name: JANE ROE
Categories: A B C
Expiry: 2030-12-31`

func newClassifier() *Classifier {
	return New(config.VerificationConfig{
		MinConfidence:  0.3,
		HintConfidence: 0.7,
		OverrideMargin: 0.2,
	})
}

func TestClassify_NoHint(t *testing.T) {
	c := newClassifier()

	res, err := c.Classify(model.RecognizedText{Content: passportText, Confidence: 0.95}, "scan.png", model.DocumentTypeUnknown)
	require.NoError(t, err)
	assert.Equal(t, model.DocumentTypePassport, res.DetectedType)
	assert.Equal(t, 0.95, res.ClassifierConfidence)
	assert.False(t, res.HintApplied)

	res, err = c.Classify(model.RecognizedText{Content: licenseText, Confidence: 0.95}, "", model.DocumentTypeUnknown)
	require.NoError(t, err)
	assert.Equal(t, model.DocumentTypeDrivingLicense, res.DetectedType)
}

func TestClassify_BelowFloor(t *testing.T) {
	c := newClassifier()

	res, err := c.Classify(model.RecognizedText{Content: "smudge ... illegible", Confidence: 0.4}, "scan.jpg", model.DocumentTypeUnknown)
	assert.ErrorIs(t, err, ErrUnclassifiable)
	assert.Equal(t, model.DocumentTypeUnknown, res.DetectedType)
	for _, typ := range model.KnownDocumentTypes {
		assert.Less(t, res.Scores[typ], 0.3)
	}
}

func TestClassify_TieBreakPriority(t *testing.T) {
	c := newClassifier()

	// Only filename signals, equal for passport and driving license.
	res, err := c.Classify(model.RecognizedText{}, "passport_or_driving.png", model.DocumentTypeUnknown)
	assert.ErrorIs(t, err, ErrUnclassifiable, "filename alone stays below the floor")
	assert.Equal(t, res.Scores[model.DocumentTypePassport], res.Scores[model.DocumentTypeDrivingLicense])

	lenient := New(config.VerificationConfig{MinConfidence: 0.05, HintConfidence: 0.7, OverrideMargin: 0.2})
	res, err = lenient.Classify(model.RecognizedText{}, "passport_or_driving.png", model.DocumentTypeUnknown)
	require.NoError(t, err)
	assert.Equal(t, model.DocumentTypePassport, res.DetectedType)
}

func TestClassify_Hint(t *testing.T) {
	c := newClassifier()

	t.Run("hint wins when classifier is below the override margin", func(t *testing.T) {
		res, err := c.Classify(model.RecognizedText{Content: "Name: JOHN DOE", Confidence: 0.95}, "", model.DocumentTypePassport)
		require.NoError(t, err)
		assert.Equal(t, model.DocumentTypePassport, res.DetectedType)
		assert.True(t, res.HintApplied)
		assert.Equal(t, 0.7, res.ClassifierConfidence)
	})

	t.Run("hint wins on an exact tie with the margin", func(t *testing.T) {
		// driving license scores exactly 0.9 = hint confidence + margin.
		text := model.RecognizedText{Content: "Driving Licence\nLicence No 123\nCategory B", Confidence: 1}
		require.Equal(t, 0.9, Score(text, "")[model.DocumentTypeDrivingLicense])

		res, err := c.Classify(text, "", model.DocumentTypePassport)
		require.NoError(t, err)
		assert.Equal(t, model.DocumentTypePassport, res.DetectedType)
	})

	t.Run("strong evidence overrides the hint", func(t *testing.T) {
		res, err := c.Classify(model.RecognizedText{Content: passportText, Confidence: 0.95}, "", model.DocumentTypeNationalID)
		require.NoError(t, err)
		assert.Equal(t, model.DocumentTypePassport, res.DetectedType)
		assert.False(t, res.HintApplied)
	})

	t.Run("hint keeps a higher own score", func(t *testing.T) {
		res, err := c.Classify(model.RecognizedText{Content: passportText, Confidence: 0.95}, "", model.DocumentTypePassport)
		require.NoError(t, err)
		assert.Equal(t, 0.95, res.ClassifierConfidence)
	})
}

func TestScore_CappedAndScaled(t *testing.T) {
	scores := Score(model.RecognizedText{Content: passportText, Confidence: 0.5}, "my_passport.pdf")
	assert.Equal(t, 0.6, scores[model.DocumentTypePassport])
	for _, s := range scores {
		assert.GreaterOrEqual(t, s, 0.0)
		assert.LessOrEqual(t, s, 1.0)
	}
}

func TestScore_HeadingsAreNotMRZ(t *testing.T) {
	scores := Score(model.RecognizedText{Content: "PASSPORT\nIDENTITY CARD", Confidence: 1}, "")
	assert.Equal(t, 0.5, scores[model.DocumentTypePassport])
	assert.Equal(t, 0.5, scores[model.DocumentTypeNationalID])

	withZone := Score(model.RecognizedText{Content: "P<TSTDOE<<JOHN<<<<<<<<<<<<<<<<<<<<<<<<<<<<<<", Confidence: 1}, "")
	assert.Equal(t, 0.3, withZone[model.DocumentTypePassport])
}
