package form_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formstate/pkg/form"
	"github.com/goliatone/go-formstate/pkg/testsupport"
)

type extras struct {
	MinLength int
}

func longerThan(n int) func(any) bool {
	return func(value any) bool {
		s, _ := value.(string)
		return len(s) > n
	}
}

func newController(t *testing.T, initial form.Values, meta form.Metadata[extras], opts ...form.Option) (*form.Controller[extras], *form.MapSource, *testsupport.ManualClock) {
	t.Helper()
	clock := &testsupport.ManualClock{}
	source := form.NewMapSource(initial)
	opts = append([]form.Option{form.WithClock(clock)}, opts...)
	ctrl := form.New(source, meta, opts...)
	t.Cleanup(ctrl.Close)
	return ctrl, source, clock
}

func TestRegisterIsIdempotent(t *testing.T) {
	ctrl, _, clock := newController(t, nil, form.Metadata[extras]{})

	ctrl.Register("firstName")
	once := ctrl.Visible()
	ctrl.Register("firstName")

	if diff := cmp.Diff(once, ctrl.Visible()); diff != "" {
		t.Fatalf("visible set changed on second register (-once +twice):\n%s", diff)
	}
	if diff := cmp.Diff(map[string]bool{"firstName": true}, once); diff != "" {
		t.Fatalf("visible mismatch (-want +got):\n%s", diff)
	}
	if clock.Pending() != 1 {
		t.Fatalf("pending timers = %d, want 1", clock.Pending())
	}
}

func TestUnregisterClearsErrorAndIsIdempotent(t *testing.T) {
	meta := form.Metadata[extras]{
		"email": {Validate: form.Check[extras](longerThan(0), "Email is required")},
	}
	ctrl, _, clock := newController(t, form.Values{"email": ""}, meta)

	ctrl.Unregister("email")
	if clock.Pending() != 0 {
		t.Fatalf("unregistering an unknown field scheduled validation")
	}

	ctrl.Register("email")
	clock.Fire()
	if got := ctrl.Error("email"); got != "Email is required" {
		t.Fatalf("error = %q, want required message", got)
	}

	ctrl.Unregister("email")
	if _, ok := ctrl.Errors()["email"]; ok {
		t.Fatalf("error survived unregister")
	}
	if ctrl.IsVisible("email") {
		t.Fatalf("email still visible")
	}
	ctrl.Unregister("email")
	if len(ctrl.Visible()) != 0 {
		t.Fatalf("visible = %v, want empty", ctrl.Visible())
	}
}

func TestEffectiveValuePrefersCachedEdit(t *testing.T) {
	ctrl, source, _ := newController(t, form.Values{"name": "Ada", "city": "Turin"}, form.Metadata[extras]{})

	ctrl.SetCachedFieldValue("name", "Grace")

	if got := ctrl.Value("name"); got != "Grace" {
		t.Fatalf("name = %v, want cached Grace", got)
	}
	if got := ctrl.Value("city"); got != "Turin" {
		t.Fatalf("city = %v, want committed Turin", got)
	}
	if got := source.Values()["name"]; got != "Ada" {
		t.Fatalf("committed name = %v, cached edit leaked into source", got)
	}
	if ctrl.IsTouched("name") {
		t.Fatalf("cached edit marked the field touched")
	}
}

func TestCommitRoundTrip(t *testing.T) {
	ctrl, source, _ := newController(t, nil, form.Metadata[extras]{})

	ctrl.SetCachedFieldValue("email", "a@b.com")
	if err := ctrl.CommitFieldValue("email"); err != nil {
		t.Fatalf("commit: %v", err)
	}

	if got := source.Values()["email"]; got != "a@b.com" {
		t.Fatalf("committed email = %v", got)
	}
	if ctrl.HasCachedValue("email") {
		t.Fatalf("cached edit remains after commit")
	}
	if !ctrl.IsTouched("email") {
		t.Fatalf("email not touched after commit")
	}
}

func TestCommitWithoutCachedValueOnlyTouches(t *testing.T) {
	ctrl, source, _ := newController(t, form.Values{"name": "Ada"}, form.Metadata[extras]{})

	if err := ctrl.CommitFieldValue("name"); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if !ctrl.IsTouched("name") {
		t.Fatalf("commit without edit should touch the field")
	}
	if diff := cmp.Diff(form.Values{"name": "Ada"}, source.Values()); diff != "" {
		t.Fatalf("source changed (-want +got):\n%s", diff)
	}
}

func TestSetFieldValueDropsCachedEdit(t *testing.T) {
	ctrl, _, _ := newController(t, nil, form.Metadata[extras]{})

	ctrl.SetCachedFieldValue("name", "draft")
	if err := ctrl.SetFieldValue("name", "final"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if ctrl.HasCachedValue("name") {
		t.Fatalf("cached edit survived a committed write")
	}
	if got := ctrl.Value("name"); got != "final" {
		t.Fatalf("name = %v, want final", got)
	}
}

func TestEffectCascadeRunsOneLevel(t *testing.T) {
	meta := form.Metadata[extras]{
		"a": {Effects: map[string]form.EffectFunc{
			"b": func(value any) (any, error) { return value.(string) + "-b", nil },
		}},
		"b": {Effects: map[string]form.EffectFunc{
			"c": form.Const("from-b"),
		}},
	}
	ctrl, source, _ := newController(t, form.Values{"c": "original"}, meta)

	if err := ctrl.SetFieldValue("a", "x"); err != nil {
		t.Fatalf("set a: %v", err)
	}
	want := form.Values{"a": "x", "b": "x-b", "c": "original"}
	if diff := cmp.Diff(want, source.Values()); diff != "" {
		t.Fatalf("values after cascading write (-want +got):\n%s", diff)
	}
	if !ctrl.IsTouched("b") {
		t.Fatalf("cascaded field b not touched")
	}
	if ctrl.IsTouched("c") {
		t.Fatalf("c touched by a second-level cascade")
	}

	if err := ctrl.SetFieldValue("b", "y"); err != nil {
		t.Fatalf("set b: %v", err)
	}
	if got := source.Values()["c"]; got != "from-b" {
		t.Fatalf("c = %v after primary write to b, want from-b", got)
	}
}

func TestCascadeClearsCachedEditOfTarget(t *testing.T) {
	meta := form.Metadata[extras]{
		"vipFlag": {Effects: map[string]form.EffectFunc{"firstName": form.Const("")}},
	}
	ctrl, _, _ := newController(t, form.Values{"firstName": "petr"}, meta)

	ctrl.SetCachedFieldValue("firstName", "draft")
	if err := ctrl.SetFieldValue("vipFlag", true); err != nil {
		t.Fatalf("set: %v", err)
	}
	if ctrl.HasCachedValue("firstName") {
		t.Fatalf("cascaded write kept the target's cached edit")
	}
	if got := ctrl.Value("firstName"); got != "" {
		t.Fatalf("firstName = %q, want empty", got)
	}
}

func TestSkipEffects(t *testing.T) {
	meta := form.Metadata[extras]{
		"vipFlag": {Effects: map[string]form.EffectFunc{"firstName": form.Const("")}},
	}
	ctrl, source, _ := newController(t, form.Values{"firstName": "petr"}, meta)

	if err := ctrl.SetFieldValue("vipFlag", true, form.SkipEffects()); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got := source.Values()["firstName"]; got != "petr" {
		t.Fatalf("firstName = %v, effects ran despite SkipEffects", got)
	}
}

func TestEffectFailureFailsTheWrite(t *testing.T) {
	boom := errors.New("boom")
	meta := form.Metadata[extras]{
		"country": {Effects: map[string]form.EffectFunc{
			"currency": func(any) (any, error) { return nil, boom },
			"region":   form.Const("emea"),
		}},
	}
	ctrl, source, _ := newController(t, nil, meta)

	err := ctrl.SetFieldValue("country", "IT")
	if !errors.Is(err, form.ErrEffectFailed) {
		t.Fatalf("err = %v, want ErrEffectFailed", err)
	}
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped cause", err)
	}
	if got := source.Values()["country"]; got != "IT" {
		t.Fatalf("primary write was rolled back: %v", got)
	}
	if _, ok := source.Values()["region"]; ok {
		t.Fatalf("region written although effect evaluation failed")
	}
}

func TestTouchedIsMonotonic(t *testing.T) {
	ctrl, _, clock := newController(t, nil, form.Metadata[extras]{})

	ctrl.Register("name")
	if err := ctrl.SetFieldValue("name", "Ada"); err != nil {
		t.Fatalf("set: %v", err)
	}
	ctrl.SetCachedFieldValue("name", "")
	ctrl.Register("name")
	clock.Fire()
	ctrl.Validate()

	if !ctrl.IsTouched("name") {
		t.Fatalf("touched flag was reset")
	}
}

func TestDebounceCollapsesRegistrations(t *testing.T) {
	calls := make(map[string]int)
	counting := func(field string) form.ValidateFunc[extras] {
		return func(any, form.Values, extras) string {
			calls[field]++
			return ""
		}
	}
	fields := []string{"a", "b", "c", "d", "e"}
	meta := form.Metadata[extras]{}
	for _, field := range fields {
		meta[field] = form.FieldMeta[extras]{Validate: counting(field)}
	}
	ctrl, _, clock := newController(t, nil, meta)

	for _, field := range fields {
		ctrl.Register(field)
	}
	if clock.Pending() != 1 {
		t.Fatalf("pending timers = %d, want 1", clock.Pending())
	}
	if clock.LastDelay() != form.DefaultDebounce {
		t.Fatalf("delay = %s, want %s", clock.LastDelay(), form.DefaultDebounce)
	}
	if len(calls) != 0 {
		t.Fatalf("validators ran before the debounce fired: %v", calls)
	}

	clock.Fire()

	want := map[string]int{"a": 1, "b": 1, "c": 1, "d": 1, "e": 1}
	if diff := cmp.Diff(want, calls); diff != "" {
		t.Fatalf("validator calls (-want +got):\n%s", diff)
	}
	if got := form.ValidationPasses(ctrl); got != 1 {
		t.Fatalf("validation passes = %d, want 1", got)
	}
}

func TestNoValidationBeforeInteraction(t *testing.T) {
	meta := form.Metadata[extras]{
		"firstName": {Validate: form.Check[extras](longerThan(2), "too short")},
	}
	ctrl, _, _ := newController(t, form.Values{"firstName": "pe"}, meta)

	if got := form.ValidationPasses(ctrl); got != 0 {
		t.Fatalf("validation ran on construction: %d passes", got)
	}
	if len(ctrl.Errors()) != 0 {
		t.Fatalf("errors before interaction: %v", ctrl.Errors())
	}
}

func TestFirstNameScenario(t *testing.T) {
	meta := form.Metadata[extras]{
		"firstName": {Validate: form.Check[extras](longerThan(2), "First name must be longer than 2 characters")},
	}
	ctrl, _, clock := newController(t, form.Values{"firstName": "pe"}, meta)

	ctrl.Register("firstName")
	clock.Fire()
	if got := ctrl.Error("firstName"); got == "" {
		t.Fatalf("expected an error for a two letter name")
	}

	if err := ctrl.SetFieldValue("firstName", "petr"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got := ctrl.Error("firstName"); got != "" {
		t.Fatalf("error = %q after fixing the value", got)
	}
}

func TestValidationReflectsCachedEdits(t *testing.T) {
	meta := form.Metadata[extras]{
		"firstName": {Validate: form.Check[extras](longerThan(2), "too short")},
	}
	ctrl, source, _ := newController(t, form.Values{"firstName": "petr"}, meta)
	ctrl.Register("firstName")

	ctrl.SetCachedFieldValue("firstName", "p")
	if got := ctrl.Error("firstName"); got != "too short" {
		t.Fatalf("error = %q, want cached edit validated", got)
	}
	if got := source.Values()["firstName"]; got != "petr" {
		t.Fatalf("committed value changed to %v", got)
	}
}

func TestInvisibleFieldsNeverCarryErrors(t *testing.T) {
	required := form.Check[extras](longerThan(0), "required")
	meta := form.Metadata[extras]{
		"shown":  {Validate: required},
		"hidden": {Validate: required},
	}
	ctrl, _, _ := newController(t, nil, meta)
	ctrl.Register("shown")

	errs := ctrl.Validate()
	if diff := cmp.Diff(form.Errors{"shown": "required"}, errs); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
}

func TestVipFlagScenario(t *testing.T) {
	meta := form.Metadata[extras]{
		"vipFlag": {Effects: map[string]form.EffectFunc{"firstName": form.Const("")}},
	}
	ctrl, source, _ := newController(t, form.Values{"firstName": "petr", "vipFlag": false}, meta)

	vip := ctrl.Field("vipFlag")
	vip.SetCachedValue(true)
	if err := vip.CommitValue(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	if diff := cmp.Diff(form.Values{"firstName": "", "vipFlag": true}, source.Values()); diff != "" {
		t.Fatalf("committed values (-want +got):\n%s", diff)
	}
	if !ctrl.IsTouched("firstName") {
		t.Fatalf("firstName not touched by the cascade")
	}
}

func TestProcessSubmitCommitsCachedValues(t *testing.T) {
	var submitted form.Values
	submit := func(_ context.Context, values form.Values) error {
		submitted = values
		return nil
	}
	ctrl, source, _ := newController(t, form.Values{"name": "Ada"}, form.Metadata[extras]{}, form.WithSubmit(submit))

	ctrl.SetCachedFieldValue("email", "a@b.com")
	if err := ctrl.ProcessSubmit(context.Background()); err != nil {
		t.Fatalf("submit: %v", err)
	}

	if got := source.Values()["email"]; got != "a@b.com" {
		t.Fatalf("committed email = %v", got)
	}
	if ctrl.HasCachedValue("email") {
		t.Fatalf("cached edit remains after submit")
	}
	if diff := cmp.Diff(form.Values{"name": "Ada", "email": "a@b.com"}, submitted); diff != "" {
		t.Fatalf("submitted values (-want +got):\n%s", diff)
	}
}

func TestProcessSubmitWithoutCallbackIsNoop(t *testing.T) {
	ctrl, source, _ := newController(t, nil, form.Metadata[extras]{})

	ctrl.SetCachedFieldValue("email", "a@b.com")
	if err := ctrl.ProcessSubmit(context.Background()); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !ctrl.HasCachedValue("email") {
		t.Fatalf("submit without callback committed cached edits")
	}
	if _, ok := source.Values()["email"]; ok {
		t.Fatalf("submit without callback wrote to the source")
	}
}

func TestProcessSubmitWrapsCallbackError(t *testing.T) {
	rejected := errors.New("rejected")
	submit := func(context.Context, form.Values) error { return rejected }
	ctrl, _, _ := newController(t, nil, form.Metadata[extras]{}, form.WithSubmit(submit))

	err := ctrl.ProcessSubmit(context.Background())
	if !errors.Is(err, rejected) {
		t.Fatalf("err = %v, want wrapped callback error", err)
	}
}

func TestProcessSubmitHonoursCancelledContext(t *testing.T) {
	called := false
	submit := func(context.Context, form.Values) error {
		called = true
		return nil
	}
	ctrl, _, _ := newController(t, nil, form.Metadata[extras]{}, form.WithSubmit(submit))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := ctrl.ProcessSubmit(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if called {
		t.Fatalf("submit callback ran with a cancelled context")
	}
}

func TestCalculatedValuesComeFromCommittedValues(t *testing.T) {
	calculate := func(values form.Values, _ extras) form.Values {
		first, _ := values["firstName"].(string)
		last, _ := values["lastName"].(string)
		return form.Values{"fullName": strings.TrimSpace(first + " " + last)}
	}
	var seen any
	meta := form.Metadata[extras]{
		"lastName": {Validate: func(_ any, values form.Values, _ extras) string {
			seen = values["fullName"]
			return ""
		}},
	}
	ctrl, _, _ := newController(t, form.Values{"firstName": "Ada", "lastName": "Byron"}, meta, form.WithCalculate(calculate))
	ctrl.Register("lastName")

	if diff := cmp.Diff(form.Values{"fullName": "Ada Byron"}, ctrl.Calculated()); diff != "" {
		t.Fatalf("initial calculated values (-want +got):\n%s", diff)
	}

	ctrl.SetCachedFieldValue("lastName", "Lovelace")
	if got := ctrl.Calculated()["fullName"]; got != "Ada Byron" {
		t.Fatalf("calculated values saw a cached edit: %v", got)
	}
	if seen != "Ada Byron" {
		t.Fatalf("validator saw fullName %v, want calculated value", seen)
	}

	if err := ctrl.CommitFieldValue("lastName"); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if got := ctrl.Calculated()["fullName"]; got != "Ada Lovelace" {
		t.Fatalf("fullName = %v after commit", got)
	}
	if seen != "Ada Lovelace" {
		t.Fatalf("validator saw stale fullName %v", seen)
	}
}

func TestCalculatedValuesWinInValidatorView(t *testing.T) {
	calculate := func(form.Values, extras) form.Values {
		return form.Values{"total": 42}
	}
	var seen any
	meta := form.Metadata[extras]{
		"total": {Validate: func(_ any, values form.Values, _ extras) string {
			seen = values["total"]
			return ""
		}},
	}
	ctrl, _, _ := newController(t, form.Values{"total": 1}, meta, form.WithCalculate(calculate))
	ctrl.Register("total")
	ctrl.SetCachedFieldValue("total", 7)

	if seen != 42 {
		t.Fatalf("merged total = %v, want calculated 42", seen)
	}
}

func TestExtraValuesReachValidators(t *testing.T) {
	meta := form.Metadata[extras]{
		"code": {Validate: func(value any, _ form.Values, extra extras) string {
			if s, _ := value.(string); len(s) < extra.MinLength {
				return "too short"
			}
			return ""
		}},
	}
	ctrl, _, _ := newController(t, form.Values{"code": "abc"}, meta, form.WithExtra(extras{MinLength: 2}))
	ctrl.Register("code")

	if errs := ctrl.Validate(); len(errs) != 0 {
		t.Fatalf("errors = %v, want none", errs)
	}
	ctrl.SetExtraValues(extras{MinLength: 5})
	if got := ctrl.Error("code"); got != "too short" {
		t.Fatalf("error = %q after raising MinLength", got)
	}
	if got := ctrl.Extra().MinLength; got != 5 {
		t.Fatalf("extra MinLength = %d", got)
	}
}

func TestValuesChangedRecomputesFromHost(t *testing.T) {
	values := form.Values{"qty": 1}
	source := form.SourceFuncs{
		Get: func() form.Values { return values },
		Set: func(field string, value any) { values[field] = value },
	}
	calculate := func(v form.Values, _ extras) form.Values {
		qty, _ := v["qty"].(int)
		return form.Values{"double": qty * 2}
	}
	ctrl := form.New(source, form.Metadata[extras]{}, form.WithCalculate(calculate), form.WithClock(&testsupport.ManualClock{}))
	t.Cleanup(ctrl.Close)

	values["qty"] = 4
	ctrl.ValuesChanged()
	if got := ctrl.Calculated()["double"]; got != 8 {
		t.Fatalf("double = %v, want 8", got)
	}
}

func TestSubscribeReceivesSnapshots(t *testing.T) {
	ctrl, _, clock := newController(t, nil, form.Metadata[extras]{})

	var snapshots []form.Snapshot[extras]
	unsubscribe := ctrl.Subscribe(func(s form.Snapshot[extras]) {
		snapshots = append(snapshots, s)
	})

	ctrl.Register("name")
	ctrl.Register("name")
	ctrl.SetCachedFieldValue("name", "Ada")
	clock.Fire()

	if len(snapshots) != 3 {
		t.Fatalf("snapshots = %d, want 3", len(snapshots))
	}
	last := snapshots[len(snapshots)-1]
	if diff := cmp.Diff(form.Values{"name": "Ada"}, last.Cached); diff != "" {
		t.Fatalf("cached in snapshot (-want +got):\n%s", diff)
	}
	if !last.Visible["name"] {
		t.Fatalf("snapshot missing visible field")
	}

	unsubscribe()
	ctrl.Unregister("name")
	if len(snapshots) != 3 {
		t.Fatalf("listener called after unsubscribe")
	}
}

func TestRenderProps(t *testing.T) {
	var submitted form.Values
	submit := func(_ context.Context, values form.Values) error {
		submitted = values
		return nil
	}
	ctrl, _, _ := newController(t, form.Values{"name": "Ada"}, form.Metadata[extras]{},
		form.WithSubmit(submit),
		form.WithExtra(extras{MinLength: 3}),
	)

	var props form.RenderProps[extras]
	ctrl.Render(func(p form.RenderProps[extras]) { props = p })

	if diff := cmp.Diff(form.Values{"name": "Ada"}, props.Values); diff != "" {
		t.Fatalf("render values (-want +got):\n%s", diff)
	}
	if props.Extra.MinLength != 3 {
		t.Fatalf("render extra = %+v", props.Extra)
	}
	if err := props.ProcessSubmit(context.Background()); err != nil {
		t.Fatalf("submit through props: %v", err)
	}
	if submitted == nil {
		t.Fatalf("ProcessSubmit from render props did not reach the callback")
	}
}

func TestFieldHandleLifecycle(t *testing.T) {
	meta := form.Metadata[extras]{
		"firstName": {Validate: form.Check[extras](longerThan(2), "too short")},
	}
	ctrl, _, _ := newController(t, form.Values{"firstName": "petr"}, meta)

	field := ctrl.Field("firstName")
	if !ctrl.IsVisible("firstName") {
		t.Fatalf("obtaining a field handle did not register it")
	}

	field.SetCachedValue("p")
	if field.Value() != "p" || field.Error() != "too short" {
		t.Fatalf("field = (%v, %q)", field.Value(), field.Error())
	}
	if field.IsTouched() {
		t.Fatalf("cached edit touched the field")
	}
	field.SetCachedValue("pavel")
	if err := field.CommitValue(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if !field.IsTouched() || field.Error() != "" {
		t.Fatalf("after commit: touched=%v error=%q", field.IsTouched(), field.Error())
	}

	field.Release()
	field.Release()
	if ctrl.IsVisible("firstName") {
		t.Fatalf("release did not unregister the field")
	}
}

func TestControllerFromContext(t *testing.T) {
	ctrl, _, _ := newController(t, nil, form.Metadata[extras]{})
	ctx := form.NewContext(context.Background(), ctrl)

	if got := form.FromContext[extras](ctx); got != ctrl {
		t.Fatalf("FromContext returned a different controller")
	}
	field := form.FieldFromContext[extras](ctx, "email")
	if field.Name() != "email" || !ctrl.IsVisible("email") {
		t.Fatalf("FieldFromContext did not mount email")
	}
}

func TestMisuseFailsLoudly(t *testing.T) {
	cases := map[string]struct {
		run  func()
		want error
	}{
		"missing controller in context": {
			run:  func() { form.FromContext[extras](context.Background()) },
			want: form.ErrNoController,
		},
		"controller of another form type": {
			run: func() {
				other := form.New(nil, form.Metadata[string]{})
				defer other.Close()
				ctx := form.NewContext(context.Background(), other)
				form.FieldFromContext[extras](ctx, "email")
			},
			want: form.ErrNoController,
		},
		"nil controller": {
			run: func() {
				var ctrl *form.Controller[extras]
				ctrl.Register("email")
			},
			want: form.ErrNoController,
		},
		"unbound field handle": {
			run: func() {
				var field *form.Field[extras]
				field.Value()
			},
			want: form.ErrNoController,
		},
		"closed controller": {
			run: func() {
				ctrl := form.New(nil, form.Metadata[extras]{})
				ctrl.Close()
				ctrl.SetCachedFieldValue("email", "x")
			},
			want: form.ErrClosed,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			defer func() {
				recovered := recover()
				err, ok := recovered.(error)
				if !ok || !errors.Is(err, tc.want) {
					t.Fatalf("panic = %v, want %v", recovered, tc.want)
				}
			}()
			tc.run()
		})
	}
}

func TestCloseCancelsPendingValidation(t *testing.T) {
	calls := 0
	meta := form.Metadata[extras]{
		"name": {Validate: func(any, form.Values, extras) string {
			calls++
			return ""
		}},
	}
	clock := &testsupport.ManualClock{}
	ctrl := form.New(form.NewMapSource(nil), meta, form.WithClock(clock))
	ctrl.Register("name")
	ctrl.Close()
	ctrl.Close()

	if clock.Pending() != 0 {
		t.Fatalf("pending timers after close = %d", clock.Pending())
	}
	clock.Fire()
	if calls != 0 {
		t.Fatalf("validator ran after close")
	}
}

func TestMismatchedExtraOptionPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for mismatched extra type")
		}
	}()
	form.New(nil, form.Metadata[extras]{}, form.WithExtra("not extras"))
}

func TestPanicInTransitionReleasesController(t *testing.T) {
	meta := form.Metadata[extras]{
		"a": {Effects: map[string]form.EffectFunc{
			"b": func(any) (any, error) { panic("boom") },
		}},
	}
	ctrl, source, _ := newController(t, form.Values{"a": 0, "b": 0}, meta)

	func() {
		defer func() {
			if recover() == nil {
				t.Fatalf("expected the effect panic to propagate")
			}
		}()
		_ = ctrl.SetFieldValue("a", 1)
	}()

	mustReturn(t, func() {
		if got := ctrl.Value("a"); got != 1 {
			t.Errorf("Value(a) = %v, want 1", got)
		}
	})
	if got := source.Values()["b"]; got != 0 {
		t.Fatalf("b = %v, want 0", got)
	}
	mustReturn(t, func() {
		if err := ctrl.SetFieldValue("b", 2); err != nil {
			t.Errorf("SetFieldValue(b): %v", err)
		}
	})
	mustReturn(t, ctrl.Close)
}

func TestPanicInDebouncedPassReleasesController(t *testing.T) {
	meta := form.Metadata[extras]{
		"name": {Validate: func(any, form.Values, extras) string { panic("boom") }},
	}
	ctrl, _, clock := newController(t, nil, meta)
	ctrl.Register("name")

	func() {
		defer func() {
			if recover() == nil {
				t.Fatalf("expected the validator panic to propagate")
			}
		}()
		clock.Fire()
	}()

	mustReturn(t, func() {
		if !ctrl.IsVisible("name") {
			t.Errorf("name should stay visible")
		}
	})
	mustReturn(t, ctrl.Close)
}

func mustReturn(t *testing.T, fn func()) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		defer close(done)
		fn()
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("controller call blocked")
	}
}
