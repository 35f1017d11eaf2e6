package template

// EditableFieldKey 是用户可编辑字段的封闭枚举。
type EditableFieldKey string

const (
	FieldTeacherName      EditableFieldKey = "teacherName"
	FieldSchoolYear       EditableFieldKey = "schoolYear"
	FieldPrincipalName    EditableFieldKey = "principalName"
	FieldClassName        EditableFieldKey = "className"
	FieldPhoneNumber      EditableFieldKey = "phoneNumber"
	FieldOptionalAddition EditableFieldKey = "optionalAddition"
	FieldSchoolName       EditableFieldKey = "schoolName"
	FieldSectionName      EditableFieldKey = "sectionName"
	FieldDirectorateName  EditableFieldKey = "directorateName"
	FieldSubject          EditableFieldKey = "subject"
	FieldLogoURL          EditableFieldKey = "logoUrl"
	FieldRecordNumber     EditableFieldKey = "recordNumber"
)

// FieldKeys lists every editable field key.
var FieldKeys = []EditableFieldKey{
	FieldTeacherName,
	FieldSchoolYear,
	FieldPrincipalName,
	FieldClassName,
	FieldPhoneNumber,
	FieldOptionalAddition,
	FieldSchoolName,
	FieldSectionName,
	FieldDirectorateName,
	FieldSubject,
	FieldLogoURL,
	FieldRecordNumber,
}

// FieldLabels 为每个字段提供界面标签。
var FieldLabels = map[EditableFieldKey]string{
	FieldTeacherName:      "اسم المدرس",
	FieldSchoolYear:       "السنة الدراسية",
	FieldPrincipalName:    "اسم مدير المدرسة",
	FieldClassName:        "اسم الصف",
	FieldPhoneNumber:      "رقم الهاتف",
	FieldOptionalAddition: "إضافة اختيارية",
	FieldSchoolName:       "اسم المدرسة",
	FieldSectionName:      "الشعبة",
	FieldDirectorateName:  "اسم المديرية",
	FieldSubject:          "المادة",
	FieldLogoURL:          "رابط صورة الشعار (اللوكو)",
	FieldRecordNumber:     "رقم السجل",
}

// Valid reports whether k belongs to the closed field enumeration.
func (k EditableFieldKey) Valid() bool {
	_, ok := FieldLabels[k]
	return ok
}

// Label returns the display label, falling back to the raw key.
func (k EditableFieldKey) Label() string {
	if label, ok := FieldLabels[k]; ok {
		return label
	}
	return string(k)
}
