package academic

import (
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"academicchain/core/events"
	"academicchain/core/state"
	"academicchain/crypto"
	"academicchain/native/bank"
	"academicchain/native/marker"
	"academicchain/native/token"
	"academicchain/storage"
)

type fixture struct {
	engine     *Engine
	manager    *state.Manager
	bank       *bank.Engine
	ledger     *token.Engine
	markers    *marker.Engine
	events     *events.Buffer
	now        int64
	authority  common.Address
	treasury   common.Address
	instructor common.Address
	student    common.Address
}

type pauseSet map[string]bool

func (p pauseSet) IsPaused(module string) bool { return p[module] }

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	manager := state.NewManager(db)
	buf := &events.Buffer{}

	bankEngine := bank.NewEngine()
	bankEngine.SetState(manager)
	bankEngine.SetEmitter(buf)
	ledger := token.NewEngine()
	ledger.SetState(manager)
	ledger.SetEmitter(buf)
	markers := marker.NewEngine()
	markers.SetState(manager)
	markers.SetEmitter(buf)

	f := &fixture{
		manager:    manager,
		bank:       bankEngine,
		ledger:     ledger,
		markers:    markers,
		events:     buf,
		now:        1_700_000_000,
		authority:  common.HexToAddress("0xa0"),
		treasury:   common.HexToAddress("0x7e"),
		instructor: common.HexToAddress("0x1c"),
		student:    common.HexToAddress("0x51"),
	}
	engine := NewEngine(DefaultProgramID)
	engine.SetState(manager)
	engine.SetLedger(ledger)
	engine.SetBank(bankEngine)
	engine.SetMarkers(markers)
	engine.SetEmitter(buf)
	engine.SetNowFunc(func() int64 { return f.now })
	f.engine = engine
	return f
}

func (f *fixture) bootstrap(t *testing.T) *ProgramConfig {
	t.Helper()
	cfg, err := f.engine.Bootstrap(f.authority, f.treasury, "", 0)
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	return cfg
}

func (f *fixture) fund(t *testing.T, addr common.Address, amount int64) {
	t.Helper()
	if err := f.bank.Credit(addr, big.NewInt(amount)); err != nil {
		t.Fatalf("fund: %v", err)
	}
}

func (f *fixture) createCourse(t *testing.T, id string, credits uint64) *Course {
	t.Helper()
	course, err := f.engine.CreateCourse(f.authority, id, "Intro to "+id, f.instructor, credits)
	if err != nil {
		t.Fatalf("create course %s: %v", id, err)
	}
	return course
}

func (f *fixture) enroll(t *testing.T, credits uint64, courseID string) {
	t.Helper()
	f.fund(t, f.student, int64(credits)*int64(DefaultCreditPrice))
	if _, err := f.engine.PurchaseCredits(f.student, credits); err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if _, err := f.engine.RegisterCourse(f.student, courseID); err != nil {
		t.Fatalf("register: %v", err)
	}
}

func nativeBalance(t *testing.T, f *fixture, addr common.Address) *big.Int {
	t.Helper()
	bal, err := f.bank.Balance(addr)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	return bal
}

func creditBalance(t *testing.T, f *fixture, addr common.Address) uint64 {
	t.Helper()
	bal, err := f.engine.CreditBalance(addr)
	if err != nil {
		t.Fatalf("credit balance: %v", err)
	}
	return bal
}

func TestRecordAddressesAreDeterministic(t *testing.T) {
	f := newFixture(t)
	first, err := f.engine.enrollmentKey(f.student, "CS101")
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	second, err := f.engine.enrollmentKey(f.student, "CS101")
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if first.Address != second.Address || first.Bump != second.Bump {
		t.Fatalf("enrollment address not reproducible")
	}
	other, err := f.engine.enrollmentKey(common.HexToAddress("0x52"), "CS101")
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if other.Address == first.Address {
		t.Fatalf("distinct students share an enrollment address")
	}
	direct, err := crypto.CreateProgramAddress(DefaultProgramID, first.Seeds, first.Bump)
	if err != nil || direct != first.Address {
		t.Fatalf("address does not verify against its bump: %v", err)
	}
}

func TestBootstrapOnce(t *testing.T) {
	f := newFixture(t)
	cfg := f.bootstrap(t)
	if cfg.CreditPrice != DefaultCreditPrice || cfg.Authority != f.authority || cfg.CreditMint != DefaultCreditSymbol {
		t.Fatalf("unexpected config %+v", cfg)
	}
	addr, err := f.engine.ConfigAddress()
	if err != nil || addr != cfg.Address {
		t.Fatalf("config address mismatch: %v", err)
	}
	if _, err := f.engine.Bootstrap(f.student, f.treasury, "", 5); !errors.Is(err, ErrAlreadyInitialized) {
		t.Fatalf("expected already initialized, got %v", err)
	}
	stored, err := f.engine.Config()
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	if stored.Authority != f.authority || stored.CreditPrice != DefaultCreditPrice {
		t.Fatalf("second bootstrap modified config: %+v", stored)
	}
}

func TestBootstrapRequiresTreasury(t *testing.T) {
	f := newFixture(t)
	if _, err := f.engine.Bootstrap(f.authority, common.Address{}, "", 0); !errors.Is(err, ErrInvalidTreasury) {
		t.Fatalf("expected invalid treasury, got %v", err)
	}
	if _, err := f.engine.Config(); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("rejected bootstrap created config: %v", err)
	}
}

func TestOperationsRequireBootstrap(t *testing.T) {
	f := newFixture(t)
	if _, err := f.engine.PurchaseCredits(f.student, 1); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected not initialized, got %v", err)
	}
	if KindOf(ErrNotInitialized) != KindNotFound {
		t.Fatalf("unexpected kind for not initialized")
	}
}

func TestPurchaseCredits(t *testing.T) {
	f := newFixture(t)
	f.bootstrap(t)
	f.fund(t, f.student, 20_000_000)

	profile, err := f.engine.PurchaseCredits(f.student, 10)
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if profile.TotalCreditsPurchased != 10 || profile.CreatedAt != uint64(f.now) {
		t.Fatalf("unexpected profile %+v", profile)
	}
	if got := nativeBalance(t, f, f.student); got.Cmp(big.NewInt(10_000_000)) != 0 {
		t.Fatalf("unexpected student native balance %s", got)
	}
	if got := nativeBalance(t, f, f.treasury); got.Cmp(big.NewInt(10_000_000)) != 0 {
		t.Fatalf("unexpected treasury balance %s", got)
	}
	if got := creditBalance(t, f, f.student); got != 10 {
		t.Fatalf("unexpected credit balance %d", got)
	}

	f.now += 100
	profile, err = f.engine.PurchaseCredits(f.student, 3)
	if err != nil {
		t.Fatalf("second purchase: %v", err)
	}
	if profile.TotalCreditsPurchased != 13 {
		t.Fatalf("purchase counter not monotonic: %d", profile.TotalCreditsPurchased)
	}
	if profile.CreatedAt != uint64(f.now-100) {
		t.Fatalf("profile recreated on second purchase")
	}

	if _, err := f.engine.PurchaseCredits(f.student, 0); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected invalid amount, got %v", err)
	}
}

func TestPurchaseCreditsFailures(t *testing.T) {
	f := newFixture(t)
	f.bootstrap(t)

	if _, err := f.engine.PurchaseCredits(f.student, 1); !errors.Is(err, bank.ErrInsufficientFunds) {
		t.Fatalf("expected insufficient native funds, got %v", err)
	}
	if KindOf(bank.ErrInsufficientFunds) != KindExternal {
		t.Fatalf("collaborator errors should classify as external")
	}
	if _, err := f.engine.PurchaseCredits(f.student, ^uint64(0)); !errors.Is(err, ErrArithmeticOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}
	if KindOf(ErrArithmeticOverflow) != KindArithmetic {
		t.Fatalf("unexpected overflow kind")
	}
}

func TestCreateCourse(t *testing.T) {
	f := newFixture(t)
	f.bootstrap(t)

	course := f.createCourse(t, "CS101", 5)
	if !course.IsActive || course.CreatedAt != uint64(f.now) || course.Instructor != f.instructor {
		t.Fatalf("unexpected course %+v", course)
	}
	if _, err := f.engine.CreateCourse(f.authority, "CS101", "Other", f.instructor, 3); !errors.Is(err, ErrDuplicateCourse) {
		t.Fatalf("expected duplicate, got %v", err)
	}
	stored, err := f.engine.Course("CS101")
	if err != nil || stored.RequiredCredits != 5 {
		t.Fatalf("duplicate create modified course: %+v err=%v", stored, err)
	}

	cases := []struct {
		name    string
		caller  common.Address
		id      string
		title   string
		credits uint64
		want    error
	}{
		{"not authority", f.student, "CS102", "Data", 3, ErrUnauthorized},
		{"long id", f.authority, "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456", "Data", 3, ErrInvalidCourseID},
		{"empty name", f.authority, "CS102", "", 3, ErrInvalidCourseName},
		{"zero credits", f.authority, "CS102", "Data", 0, ErrInvalidCredits},
	}
	for _, tc := range cases {
		if _, err := f.engine.CreateCourse(tc.caller, tc.id, tc.title, f.instructor, tc.credits); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
	long := make([]byte, MaxCourseNameLength+1)
	for i := range long {
		long[i] = 'n'
	}
	if _, err := f.engine.CreateCourse(f.authority, "CS102", string(long), f.instructor, 3); !errors.Is(err, ErrInvalidCourseName) {
		t.Fatalf("expected long name rejection, got %v", err)
	}
	if _, err := f.engine.CreateCourse(f.authority, "ABCDEFGHIJKLMNOPQRSTUVWXYZ012345", string(long[:MaxCourseNameLength]), f.instructor, 3); err != nil {
		t.Fatalf("boundary lengths should be accepted: %v", err)
	}

	courses, err := f.engine.Courses()
	if err != nil || len(courses) != 2 || courses[0].CourseID != "CS101" {
		t.Fatalf("unexpected course index %d err=%v", len(courses), err)
	}
}

func TestCreateCourseAcceptsEmptyID(t *testing.T) {
	f := newFixture(t)
	f.bootstrap(t)
	course, err := f.engine.CreateCourse(f.authority, "", "Independent Study", f.instructor, 2)
	if err != nil {
		t.Fatalf("empty course id should be accepted: %v", err)
	}
	if course.CourseID != "" || !course.IsActive {
		t.Fatalf("unexpected course %+v", course)
	}
	if _, err := f.engine.CreateCourse(f.authority, "", "Again", f.instructor, 2); !errors.Is(err, ErrDuplicateCourse) {
		t.Fatalf("expected duplicate for second empty id, got %v", err)
	}
	stored, err := f.engine.Course("")
	if err != nil || stored.CourseName != "Independent Study" {
		t.Fatalf("lookup by empty id: %+v err=%v", stored, err)
	}
}

func TestRegisterCourseConservesCredits(t *testing.T) {
	f := newFixture(t)
	f.bootstrap(t)
	f.createCourse(t, "CS101", 5)
	f.fund(t, f.student, 10_000_000)
	if _, err := f.engine.PurchaseCredits(f.student, 10); err != nil {
		t.Fatalf("purchase: %v", err)
	}

	before := creditBalance(t, f, f.student)
	enrollment, err := f.engine.RegisterCourse(f.student, "CS101")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	after := creditBalance(t, f, f.student)
	if before-after != 5 || enrollment.CreditsPaid != 5 {
		t.Fatalf("credits not conserved: before=%d after=%d paid=%d", before, after, enrollment.CreditsPaid)
	}
	profile, err := f.engine.Profile(f.student)
	if err != nil || profile.TotalCreditsSpent != 5 {
		t.Fatalf("unexpected spent counter %+v err=%v", profile, err)
	}
	if enrollment.IsCompleted || enrollment.HasCertificate() || enrollment.CompletionDate != 0 {
		t.Fatalf("new enrollment should be in registered state: %+v", enrollment)
	}

	if _, err := f.engine.RegisterCourse(f.student, "CS101"); !errors.Is(err, ErrAlreadyEnrolled) {
		t.Fatalf("expected already enrolled, got %v", err)
	}
	if got := creditBalance(t, f, f.student); got != after {
		t.Fatalf("second registration burned credits")
	}
	list, err := f.engine.Enrollments(f.student)
	if err != nil || len(list) != 1 {
		t.Fatalf("unexpected enrollment index %d err=%v", len(list), err)
	}
}

func TestRegisterCoursePreconditions(t *testing.T) {
	f := newFixture(t)
	f.bootstrap(t)
	f.createCourse(t, "CS101", 5)
	f.createCourse(t, "CS201", 50)

	if _, err := f.engine.RegisterCourse(f.student, "CS101"); !errors.Is(err, ErrProfileNotFound) {
		t.Fatalf("expected missing profile, got %v", err)
	}
	f.fund(t, f.student, 10_000_000)
	if _, err := f.engine.PurchaseCredits(f.student, 10); err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if _, err := f.engine.RegisterCourse(f.student, "NOPE"); !errors.Is(err, ErrCourseNotFound) {
		t.Fatalf("expected course not found, got %v", err)
	}
	if _, err := f.engine.RegisterCourse(f.student, "CS201"); !errors.Is(err, ErrInsufficientCredits) {
		t.Fatalf("expected insufficient credits, got %v", err)
	}
	if got := creditBalance(t, f, f.student); got != 10 {
		t.Fatalf("failed registration burned credits: %d", got)
	}
	if _, err := f.engine.Enrollment(f.student, "CS201"); !errors.Is(err, ErrEnrollmentNotFound) {
		t.Fatalf("failed registration created enrollment: %v", err)
	}

	if _, err := f.engine.SetCourseActive(f.student, "CS101", false); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected unauthorized toggle, got %v", err)
	}
	if _, err := f.engine.SetCourseActive(f.authority, "CS101", false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if _, err := f.engine.RegisterCourse(f.student, "CS101"); !errors.Is(err, ErrCourseNotActive) {
		t.Fatalf("expected inactive course, got %v", err)
	}
	if _, err := f.engine.SetCourseActive(f.authority, "CS101", true); err != nil {
		t.Fatalf("reactivate: %v", err)
	}
	if _, err := f.engine.RegisterCourse(f.student, "CS101"); err != nil {
		t.Fatalf("register after reactivation: %v", err)
	}
}

func TestCompleteCourseGradeBounds(t *testing.T) {
	for _, tc := range []struct {
		grade uint8
		want  error
	}{
		{0, nil},
		{100, nil},
		{101, ErrInvalidGrade},
	} {
		f := newFixture(t)
		f.bootstrap(t)
		f.createCourse(t, "CS101", 5)
		f.enroll(t, 5, "CS101")

		enrollment, err := f.engine.CompleteCourse(f.instructor, f.student, "CS101", tc.grade)
		if !errors.Is(err, tc.want) {
			t.Fatalf("grade %d: expected %v, got %v", tc.grade, tc.want, err)
		}
		if tc.want != nil {
			stored, err := f.engine.Enrollment(f.student, "CS101")
			if err != nil || stored.IsCompleted {
				t.Fatalf("grade %d: rejected completion changed enrollment", tc.grade)
			}
			continue
		}
		if !enrollment.IsCompleted || enrollment.Grade != tc.grade || enrollment.CompletionDate != uint64(f.now) {
			t.Fatalf("grade %d: unexpected enrollment %+v", tc.grade, enrollment)
		}
	}
}

func TestCompleteCourseAuthorization(t *testing.T) {
	f := newFixture(t)
	f.bootstrap(t)
	f.createCourse(t, "CS101", 5)
	f.enroll(t, 5, "CS101")

	before, err := f.engine.Enrollment(f.student, "CS101")
	if err != nil {
		t.Fatalf("enrollment: %v", err)
	}
	_, err = f.engine.CompleteCourse(common.HexToAddress("0xbad"), f.student, "CS101", 90)
	if !errors.Is(err, ErrUnauthorizedInstructor) {
		t.Fatalf("expected unauthorized instructor, got %v", err)
	}
	if KindOf(err) != KindAuthorization {
		t.Fatalf("unexpected kind %s", KindOf(err))
	}
	after, err := f.engine.Enrollment(f.student, "CS101")
	if err != nil {
		t.Fatalf("enrollment: %v", err)
	}
	if *after != *before {
		t.Fatalf("unauthorized completion changed enrollment: %+v", after)
	}
	profile, _ := f.engine.Profile(f.student)
	if profile.CoursesCompleted != 0 {
		t.Fatalf("unauthorized completion changed profile")
	}

	if _, err := f.engine.CompleteCourse(f.instructor, common.HexToAddress("0x52"), "CS101", 90); !errors.Is(err, ErrEnrollmentNotFound) {
		t.Fatalf("expected missing enrollment, got %v", err)
	}
}

func TestCompleteCourseIsOneShot(t *testing.T) {
	f := newFixture(t)
	f.bootstrap(t)
	f.createCourse(t, "CS101", 5)
	f.enroll(t, 5, "CS101")

	if _, err := f.engine.CompleteCourse(f.instructor, f.student, "CS101", 70); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if _, err := f.engine.CompleteCourse(f.instructor, f.student, "CS101", 95); !errors.Is(err, ErrAlreadyCompleted) {
		t.Fatalf("expected already completed, got %v", err)
	}
	profile, _ := f.engine.Profile(f.student)
	if profile.CoursesCompleted != 1 {
		t.Fatalf("repeat completion inflated counter: %d", profile.CoursesCompleted)
	}
	enrollment, _ := f.engine.Enrollment(f.student, "CS101")
	if enrollment.Grade != 70 {
		t.Fatalf("repeat completion overwrote grade: %d", enrollment.Grade)
	}
}

func TestMintCertificateOnce(t *testing.T) {
	f := newFixture(t)
	f.bootstrap(t)
	f.createCourse(t, "CS101", 5)
	f.enroll(t, 5, "CS101")

	if _, err := f.engine.MintCertificate(f.student, "CS101", "ipfs://cs101"); !errors.Is(err, ErrCourseNotCompleted) {
		t.Fatalf("expected not completed, got %v", err)
	}
	if _, err := f.engine.CompleteCourse(f.instructor, f.student, "CS101", 85); err != nil {
		t.Fatalf("complete: %v", err)
	}
	enrollment, err := f.engine.MintCertificate(f.student, "CS101", "ipfs://cs101")
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	expected, err := f.engine.certificateKey(f.student, "CS101")
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if enrollment.CertificateMint != expected.Address {
		t.Fatalf("certificate stored at unexpected address")
	}
	m, err := f.markers.Get(expected.Address)
	if err != nil || m.Owner != f.student || m.Symbol != CertificateSymbol || m.Name != CertificateNamePrefix+"Intro to CS101" {
		t.Fatalf("unexpected marker %+v err=%v", m, err)
	}

	if _, err := f.engine.MintCertificate(f.student, "CS101", "ipfs://again"); !errors.Is(err, ErrCertificateAlreadyMinted) {
		t.Fatalf("expected already minted, got %v", err)
	}
	if _, err := f.engine.MintCertificate(common.HexToAddress("0x52"), "CS101", "ipfs://x"); !errors.Is(err, ErrEnrollmentNotFound) {
		t.Fatalf("expected missing enrollment for other student, got %v", err)
	}
}

func TestMintCertificateMarkerLimitAborts(t *testing.T) {
	f := newFixture(t)
	f.bootstrap(t)
	f.createCourse(t, "CS101", 5)
	f.enroll(t, 5, "CS101")
	if _, err := f.engine.CompleteCourse(f.instructor, f.student, "CS101", 70); err != nil {
		t.Fatalf("complete: %v", err)
	}

	longURI := "ipfs://" + strings.Repeat("a", marker.MaxURILength)
	_, err := f.engine.MintCertificate(f.student, "CS101", longURI)
	if !errors.Is(err, marker.ErrInvalidURI) {
		t.Fatalf("expected marker uri limit, got %v", err)
	}
	if KindOf(err) != KindExternal {
		t.Fatalf("collaborator failure should be external, got %s", KindOf(err))
	}
	enrollment, err := f.engine.Enrollment(f.student, "CS101")
	if err != nil {
		t.Fatalf("enrollment: %v", err)
	}
	if enrollment.CertificateMint != (common.Address{}) {
		t.Fatalf("certificate recorded despite failed mint")
	}
	if _, err := f.engine.MintCertificate(f.student, "CS101", "ipfs://short"); err != nil {
		t.Fatalf("mint with valid uri: %v", err)
	}
}

func TestClaimGraduation(t *testing.T) {
	f := newFixture(t)
	f.bootstrap(t)
	f.createCourse(t, "CS101", 5)
	f.enroll(t, 5, "CS101")

	if _, err := f.engine.ClaimGraduation(f.student, []string{"CS101"}, ""); !errors.Is(err, ErrRequirementsNotMet) {
		t.Fatalf("expected requirements not met, got %v", err)
	}
	if _, err := f.engine.CompleteCourse(f.instructor, f.student, "CS101", 40); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if _, err := f.engine.ClaimGraduation(f.student, []string{"CS101", "CS102"}, ""); !errors.Is(err, ErrRequirementsNotMet) {
		t.Fatalf("expected requirements not met for two courses, got %v", err)
	}
	profile, err := f.engine.ClaimGraduation(f.student, []string{"CS101"}, "")
	if err != nil {
		t.Fatalf("graduate: %v", err)
	}
	if !profile.HasGraduated() {
		t.Fatalf("graduation marker not recorded")
	}
	if _, err := f.engine.ClaimGraduation(f.student, nil, ""); !errors.Is(err, ErrCertificateAlreadyMinted) {
		t.Fatalf("expected second graduation rejected, got %v", err)
	}
	if _, err := f.engine.ClaimGraduation(common.HexToAddress("0x52"), nil, ""); !errors.Is(err, ErrProfileNotFound) {
		t.Fatalf("expected missing profile, got %v", err)
	}
}

func TestEndToEndScenario(t *testing.T) {
	f := newFixture(t)
	cfg := f.bootstrap(t)
	if cfg.CreditPrice != 1_000_000 {
		t.Fatalf("unexpected default price %d", cfg.CreditPrice)
	}
	f.fund(t, f.student, 10_000_000)

	if _, err := f.engine.PurchaseCredits(f.student, 10); err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if got := nativeBalance(t, f, f.treasury); got.Cmp(big.NewInt(10_000_000)) != 0 {
		t.Fatalf("treasury should hold 10,000,000, got %s", got)
	}
	f.createCourse(t, "CS101", 5)
	if _, err := f.engine.RegisterCourse(f.student, "CS101"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if got := creditBalance(t, f, f.student); got != 5 {
		t.Fatalf("expected 5 credits left, got %d", got)
	}
	if _, err := f.engine.CompleteCourse(f.instructor, f.student, "CS101", 85); err != nil {
		t.Fatalf("complete: %v", err)
	}
	enrollment, err := f.engine.MintCertificate(f.student, "CS101", "ipfs://cs101")
	if err != nil {
		t.Fatalf("mint certificate: %v", err)
	}
	if !enrollment.Passed() {
		t.Fatalf("grade 85 should pass")
	}
	profile, err := f.engine.ClaimGraduation(f.student, []string{"CS101"}, "ipfs://grad")
	if err != nil {
		t.Fatalf("graduate: %v", err)
	}
	if profile.TotalCreditsPurchased != 10 || profile.TotalCreditsSpent != 5 || profile.CoursesCompleted != 1 || !profile.HasGraduated() {
		t.Fatalf("unexpected final profile %+v", profile)
	}

	var types []string
	for _, evt := range f.events.Drain() {
		types = append(types, evt.EventType())
	}
	want := map[string]bool{
		events.TypeProgramInitialized: false,
		events.TypeCreditsPurchased:   false,
		events.TypeCourseCreated:      false,
		events.TypeStudentEnrolled:    false,
		events.TypeCourseCompleted:    false,
		events.TypeCertificateMinted:  false,
		events.TypeGraduationClaimed:  false,
		events.TypeTransfer:           false,
		events.TypeTokenSupply:        false,
		events.TypeMarkerMinted:       false,
	}
	for _, typ := range types {
		if _, ok := want[typ]; ok {
			want[typ] = true
		}
	}
	for typ, seen := range want {
		if !seen {
			t.Fatalf("missing event %s in %v", typ, types)
		}
	}
}

func TestSetCreditPrice(t *testing.T) {
	f := newFixture(t)
	f.bootstrap(t)
	if _, err := f.engine.SetCreditPrice(f.student, 5); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if _, err := f.engine.SetCreditPrice(f.authority, 0); !errors.Is(err, ErrInvalidPrice) {
		t.Fatalf("expected invalid price, got %v", err)
	}
	if _, err := f.engine.SetCreditPrice(f.authority, 2_000_000); err != nil {
		t.Fatalf("set price: %v", err)
	}
	f.fund(t, f.student, 4_000_000)
	if _, err := f.engine.PurchaseCredits(f.student, 2); err != nil {
		t.Fatalf("purchase at new price: %v", err)
	}
	if got := nativeBalance(t, f, f.student); got.Sign() != 0 {
		t.Fatalf("expected student to spend everything, has %s", got)
	}
}

func TestPausedProgram(t *testing.T) {
	f := newFixture(t)
	f.bootstrap(t)
	f.engine.SetPauses(pauseSet{ModuleName: true})
	if _, err := f.engine.CreateCourse(f.authority, "CS101", "Intro", f.instructor, 1); !errors.Is(err, ErrModulePaused) {
		t.Fatalf("expected paused, got %v", err)
	}
	if _, err := f.engine.Config(); err != nil {
		t.Fatalf("queries should work while paused: %v", err)
	}
}

func TestMissingSigner(t *testing.T) {
	f := newFixture(t)
	if _, err := f.engine.Bootstrap(common.Address{}, f.treasury, "", 0); !errors.Is(err, ErrMissingSigner) {
		t.Fatalf("expected missing signer, got %v", err)
	}
}

func TestRecordTagMismatchIsCorruption(t *testing.T) {
	f := newFixture(t)
	f.bootstrap(t)
	f.createCourse(t, "CS101", 5)

	course, err := f.engine.Course("CS101")
	if err != nil {
		t.Fatalf("course: %v", err)
	}
	bogus := &StudentProfile{Tag: studentProfileTag, Student: f.student}
	if err := f.manager.KVPut(recordKey(course.Address), bogus); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if _, err := f.engine.Course("CS101"); !errors.Is(err, ErrRecordCorrupted) {
		t.Fatalf("expected corruption, got %v", err)
	}
	if KindOf(ErrRecordCorrupted) != KindIntegrity {
		t.Fatalf("unexpected kind")
	}
}

func TestErrorRegistryIsUnique(t *testing.T) {
	seenCodes := map[uint32]string{}
	seenNames := map[string]bool{}
	for _, e := range Errors() {
		if prev, ok := seenCodes[e.Code]; ok {
			t.Fatalf("code %d shared by %s and %s", e.Code, prev, e.Name)
		}
		if seenNames[e.Name] {
			t.Fatalf("duplicate name %s", e.Name)
		}
		seenCodes[e.Code] = e.Name
		seenNames[e.Name] = true
	}
	if e, ok := AsError(ErrInvalidGrade); !ok || e.Name != "InvalidGrade" {
		t.Fatalf("AsError failed for InvalidGrade")
	}
}
