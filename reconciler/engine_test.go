package reconciler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/declarr/declarr/faults"
	"github.com/declarr/declarr/field"
	"github.com/declarr/declarr/remote"
	"github.com/declarr/declarr/resource"
	"github.com/declarr/declarr/schema"
)

// fakeClient keeps in-memory remote state so plans can be applied and
// re-planned against the post-apply state.
type fakeClient struct {
	mu          sync.Mutex
	flats       map[string]resource.Resource
	collections map[string]resource.Collection
	nextID      int64
	failOn      map[string]error // "op:section:name" -> injected error
	calls       []string
}

var _ remote.Client = (*fakeClient)(nil)

func newFakeClient() *fakeClient {
	return &fakeClient{
		flats:       map[string]resource.Resource{},
		collections: map[string]resource.Collection{},
		nextID:      100,
		failOn:      map[string]error{},
	}
}

func (f *fakeClient) record(op, section, name string) error {
	key := fmt.Sprintf("%s:%s:%s", op, section, name)
	f.calls = append(f.calls, key)
	return f.failOn[key]
}

func (f *fakeClient) FetchFlat(_ context.Context, section schema.Section) (resource.Resource, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	res, ok := f.flats[section.Name]
	if !ok {
		res = resource.Resource{Section: section.Name, RemoteID: 1, Values: map[string]resource.Value{}}
		for _, spec := range section.Fields {
			res.Values[spec.Name] = spec.Default
		}
		f.flats[section.Name] = res
	}
	return f.maskSecrets(section, res), nil
}

func (f *fakeClient) FetchCollection(_ context.Context, section schema.Section) (resource.Collection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	col := resource.Collection{}
	for name, res := range f.collections[section.Name] {
		col[name] = f.maskSecrets(section, res)
	}
	return col, nil
}

// maskSecrets mimics the remote behavior of never revealing stored secrets.
func (f *fakeClient) maskSecrets(section schema.Section, res resource.Resource) resource.Resource {
	out := res.Clone()
	for _, spec := range section.Fields {
		if !spec.Secret {
			continue
		}
		value := out.Values[spec.Name]
		if value == nil {
			continue
		}
		if spec.Kind == field.KindFieldMap {
			masked := map[string]resource.Value{}
			for key := range value.(map[string]any) {
				masked[key] = field.Sentinel
			}
			out.Values[spec.Name] = map[string]any(masked)
			continue
		}
		if typed, ok := value.(string); ok && typed != "" {
			out.Values[spec.Name] = field.Sentinel
		}
	}
	return out
}

func (f *fakeClient) Create(_ context.Context, section schema.Section, res resource.Resource) (resource.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("create", section.Name, res.Name); err != nil {
		return resource.Identity{}, err
	}
	stored := res.Clone()
	f.nextID++
	stored.RemoteID = f.nextID
	if f.collections[section.Name] == nil {
		f.collections[section.Name] = resource.Collection{}
	}
	f.collections[section.Name][stored.Name] = stored
	return stored.Identity(), nil
}

func (f *fakeClient) Update(_ context.Context, section schema.Section, id resource.Identity, res resource.Resource, _ []resource.FieldDelta) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("update", section.Name, id.Name); err != nil {
		return err
	}
	if section.Kind == schema.Flat {
		stored := res.Clone()
		stored.RemoteID = id.ID
		f.flats[section.Name] = stored
		return nil
	}
	stored := res.Clone()
	stored.RemoteID = id.ID
	stored.Name = id.Name
	f.collections[section.Name][id.Name] = stored
	return nil
}

func (f *fakeClient) Delete(_ context.Context, section schema.Section, id resource.Identity) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("delete", section.Name, id.Name); err != nil {
		return err
	}
	delete(f.collections[section.Name], id.Name)
	return nil
}

func (f *fakeClient) seedCollection(section string, entries ...resource.Resource) {
	col := resource.Collection{}
	for _, res := range entries {
		f.nextID++
		res.RemoteID = f.nextID
		res.Section = section
		col[res.Name] = res
	}
	f.collections[section] = col
}

func newTestEngine(client remote.Client) *Engine {
	return New(client, Options{Logger: zerolog.Nop()})
}

func syncProfile(name string, rss bool, seeders int64) resource.Resource {
	return resource.Resource{
		Section: "sync_profiles",
		Name:    name,
		Values: map[string]resource.Value{
			"enable_rss":                rss,
			"enable_interactive_search": true,
			"enable_automatic_search":   true,
			"minimum_seeders":           seeders,
		},
	}
}

func desiredProfiles(deleteUnmanaged bool, profiles ...resource.Resource) *resource.Tree {
	tree := resource.NewTree()
	col := resource.Collection{}
	order := make([]string, 0, len(profiles))
	for _, res := range profiles {
		col[res.Name] = res
		order = append(order, res.Name)
	}
	tree.Sections["sync_profiles"] = resource.SectionState{
		Collection:      col,
		Order:           order,
		DeleteUnmanaged: deleteUnmanaged,
	}
	return tree
}

func TestPlanNoOpSymmetry(t *testing.T) {
	t.Parallel()

	client := newFakeClient()
	client.seedCollection("sync_profiles", syncProfile("Standard", true, 1))
	engine := newTestEngine(client)

	actual, err := engine.FetchActual(context.Background())
	if err != nil {
		t.Fatalf("FetchActual returned error: %v", err)
	}
	desired := desiredProfiles(true, syncProfile("Standard", true, 1))

	changeset, err := engine.Plan(desired, actual)
	if err != nil {
		t.Fatalf("Plan returned error: %v", err)
	}
	if !changeset.Empty() {
		creates, updates, deletes := changeset.Counts()
		t.Fatalf("expected empty plan, got %d creates %d updates %d deletes", creates, updates, deletes)
	}
}

func TestPlanEnableRssScenario(t *testing.T) {
	t.Parallel()

	client := newFakeClient()
	client.seedCollection("sync_profiles", syncProfile("Standard", false, 1))
	engine := newTestEngine(client)

	actual, err := engine.FetchActual(context.Background())
	if err != nil {
		t.Fatalf("FetchActual returned error: %v", err)
	}
	desired := desiredProfiles(false, syncProfile("Standard", true, 1))

	changeset, err := engine.Plan(desired, actual)
	if err != nil {
		t.Fatalf("Plan returned error: %v", err)
	}
	var updates []UpdateOp
	for _, section := range changeset.Sections {
		if section.Section == "sync_profiles" {
			updates = section.Updates
		}
	}
	if len(updates) != 1 {
		t.Fatalf("expected exactly one update, got %#v", updates)
	}
	deltas := updates[0].Deltas
	if len(deltas) != 1 || deltas[0].Field != "enable_rss" {
		t.Fatalf("expected single enable_rss delta, got %#v", deltas)
	}
	if deltas[0].Old != false || deltas[0].New != true {
		t.Fatalf("expected delta (enable_rss, false, true), got %#v", deltas[0])
	}
}

func TestPlanKeyMatchingDeterminism(t *testing.T) {
	t.Parallel()

	client := newFakeClient()
	client.seedCollection("sync_profiles",
		syncProfile("B", false, 1), // differs from desired
		syncProfile("C", true, 1),  // unmanaged
	)
	engine := newTestEngine(client)

	actual, err := engine.FetchActual(context.Background())
	if err != nil {
		t.Fatalf("FetchActual returned error: %v", err)
	}
	desired := desiredProfiles(true,
		syncProfile("A", true, 1),
		syncProfile("B", true, 1),
	)

	changeset, err := engine.Plan(desired, actual)
	if err != nil {
		t.Fatalf("Plan returned error: %v", err)
	}
	var changes SectionChanges
	for _, section := range changeset.Sections {
		if section.Section == "sync_profiles" {
			changes = section
		}
	}
	if len(changes.Creates) != 1 || changes.Creates[0].Resource.Name != "A" {
		t.Fatalf("expected exactly one create for A, got %#v", changes.Creates)
	}
	if len(changes.Updates) != 1 || changes.Updates[0].Identity.Name != "B" {
		t.Fatalf("expected exactly one update for B, got %#v", changes.Updates)
	}
	if len(changes.Deletes) != 1 || changes.Deletes[0].Identity.Name != "C" {
		t.Fatalf("expected exactly one delete for C, got %#v", changes.Deletes)
	}

	// Apply order within the section: create before update before delete.
	if _, err := engine.Apply(context.Background(), changeset); err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	want := []string{
		"create:sync_profiles:A",
		"update:sync_profiles:B",
		"delete:sync_profiles:C",
	}
	if len(client.calls) != len(want) {
		t.Fatalf("expected calls %v, got %v", want, client.calls)
	}
	for idx := range want {
		if client.calls[idx] != want[idx] {
			t.Fatalf("expected calls %v, got %v", want, client.calls)
		}
	}
}

func TestPlanDeleteSafety(t *testing.T) {
	t.Parallel()

	client := newFakeClient()
	client.seedCollection("sync_profiles",
		syncProfile("One", true, 1),
		syncProfile("Two", true, 1),
		syncProfile("Three", true, 1),
	)
	engine := newTestEngine(client)

	actual, err := engine.FetchActual(context.Background())
	if err != nil {
		t.Fatalf("FetchActual returned error: %v", err)
	}
	desired := desiredProfiles(false) // nothing managed, deletes off

	changeset, err := engine.Plan(desired, actual)
	if err != nil {
		t.Fatalf("Plan returned error: %v", err)
	}
	_, _, deletes := changeset.Counts()
	if deletes != 0 {
		t.Fatalf("expected zero deletes with delete_unmanaged=false, got %d", deletes)
	}
}

func TestApplyIdempotence(t *testing.T) {
	t.Parallel()

	client := newFakeClient()
	client.seedCollection("sync_profiles",
		syncProfile("Standard", false, 1),
		syncProfile("Stale", true, 5),
	)
	engine := newTestEngine(client)

	desired := desiredProfiles(true,
		syncProfile("Standard", true, 1),
		syncProfile("Fresh", true, 2),
	)

	actual, err := engine.FetchActual(context.Background())
	if err != nil {
		t.Fatalf("FetchActual returned error: %v", err)
	}
	changeset, err := engine.Plan(desired, actual)
	if err != nil {
		t.Fatalf("Plan returned error: %v", err)
	}
	if changeset.Empty() {
		t.Fatalf("expected non-empty first plan")
	}
	result, err := engine.Apply(context.Background(), changeset)
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	if !result.Succeeded() {
		t.Fatalf("expected successful apply, failures: %#v", result.Failed())
	}

	// Second run against the converged remote must plan nothing.
	refetched, err := engine.FetchActual(context.Background())
	if err != nil {
		t.Fatalf("FetchActual returned error: %v", err)
	}
	residual, err := engine.Plan(desired, refetched)
	if err != nil {
		t.Fatalf("Plan returned error: %v", err)
	}
	if !residual.Empty() {
		creates, updates, deletes := residual.Counts()
		t.Fatalf("expected converged state, still planned %d creates %d updates %d deletes", creates, updates, deletes)
	}

	if err := engine.Verify(context.Background(), desired); err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
}

func TestApplySecretNonLeak(t *testing.T) {
	t.Parallel()

	newIndexer := func(apiKey string) resource.Resource {
		return resource.Resource{
			Section: "indexers",
			Name:    "Nyaa",
			Values: map[string]resource.Value{
				"type":          "nyaa",
				"enable":        true,
				"priority":      int64(25),
				"fields":        map[string]any{"websiteUrl": "https://example.com"},
				"secret_fields": map[string]any{"apiKey": apiKey},
			},
		}
	}

	client := newFakeClient()
	engine := newTestEngine(client)

	desired := resource.NewTree()
	desired.Sections["indexers"] = resource.SectionState{
		Collection: resource.Collection{"Nyaa": newIndexer("s3cr3t")},
		Order:      []string{"Nyaa"},
	}

	// First run: the indexer does not exist remotely, so the secret is set
	// exactly once via the create.
	actual, err := engine.FetchActual(context.Background())
	if err != nil {
		t.Fatalf("FetchActual returned error: %v", err)
	}
	changeset, err := engine.Plan(desired, actual)
	if err != nil {
		t.Fatalf("Plan returned error: %v", err)
	}
	creates, _, _ := changeset.Counts()
	if creates != 1 {
		t.Fatalf("expected one create, got changeset %#v", changeset)
	}
	if _, err := engine.Apply(context.Background(), changeset); err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}

	// Second run: the remote only reveals the mask. An unchanged local
	// secret must not re-classify the entry as changed.
	refetched, err := engine.FetchActual(context.Background())
	if err != nil {
		t.Fatalf("FetchActual returned error: %v", err)
	}
	residual, err := engine.Plan(desired, refetched)
	if err != nil {
		t.Fatalf("Plan returned error: %v", err)
	}
	if !residual.Empty() {
		t.Fatalf("expected empty plan against masked secret, got %#v", residual.Sections)
	}
}

func TestApplyCrossSectionOrdering(t *testing.T) {
	t.Parallel()

	client := newFakeClient()
	client.seedCollection("tags", resource.Resource{Section: "tags", Name: "stale", Values: map[string]resource.Value{}})
	client.seedCollection("indexers", resource.Resource{
		Section: "indexers",
		Name:    "Old",
		Values: map[string]resource.Value{
			"type":   "oldtracker",
			"enable": true,
		},
	})
	engine := newTestEngine(client)

	desired := resource.NewTree()
	desired.Sections["tags"] = resource.SectionState{
		Collection:      resource.Collection{"anime": {Section: "tags", Name: "anime", Values: map[string]resource.Value{}}},
		Order:           []string{"anime"},
		DeleteUnmanaged: true,
	}
	desired.Sections["indexers"] = resource.SectionState{
		Collection: resource.Collection{"New": {
			Section: "indexers",
			Name:    "New",
			Values: map[string]resource.Value{
				"type":   "newtracker",
				"enable": true,
				"tags":   []string{"anime"},
			},
		}},
		Order:           []string{"New"},
		DeleteUnmanaged: true,
	}

	actual, err := engine.FetchActual(context.Background())
	if err != nil {
		t.Fatalf("FetchActual returned error: %v", err)
	}
	changeset, err := engine.Plan(desired, actual)
	if err != nil {
		t.Fatalf("Plan returned error: %v", err)
	}
	if _, err := engine.Apply(context.Background(), changeset); err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}

	// Tag creates must precede indexer creates; indexer deletes must precede
	// tag deletes (reverse section order for the delete phase).
	order := map[string]int{}
	for idx, call := range client.calls {
		order[call] = idx
	}
	if order["create:tags:anime"] > order["create:indexers:New"] {
		t.Fatalf("tag create must precede indexer create, calls: %v", client.calls)
	}
	if order["delete:indexers:Old"] > order["delete:tags:stale"] {
		t.Fatalf("indexer delete must precede tag delete, calls: %v", client.calls)
	}
}

func TestApplyPartialFailure(t *testing.T) {
	t.Parallel()

	client := newFakeClient()
	client.seedCollection("sync_profiles", syncProfile("B", false, 1))
	client.failOn["create:sync_profiles:A"] = faults.NewTypedError(faults.RemoteRejected, "name invalid", nil)
	engine := newTestEngine(client)

	desired := desiredProfiles(false,
		syncProfile("A", true, 1),
		syncProfile("B", true, 1),
	)
	actual, err := engine.FetchActual(context.Background())
	if err != nil {
		t.Fatalf("FetchActual returned error: %v", err)
	}
	changeset, err := engine.Plan(desired, actual)
	if err != nil {
		t.Fatalf("Plan returned error: %v", err)
	}
	result, err := engine.Apply(context.Background(), changeset)
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	if result.Succeeded() {
		t.Fatalf("expected aggregate failure")
	}
	failed := result.Failed()
	if len(failed) != 1 || failed[0].Name != "A" {
		t.Fatalf("expected exactly one failed operation for A, got %#v", failed)
	}
	// The failure must not have aborted the remaining update.
	found := false
	for _, call := range client.calls {
		if call == "update:sync_profiles:B" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected update for B to run despite create failure, calls: %v", client.calls)
	}
}

func TestApplyCancellationStopsBetweenOperations(t *testing.T) {
	t.Parallel()

	client := newFakeClient()
	engine := newTestEngine(client)

	desired := desiredProfiles(false,
		syncProfile("A", true, 1),
		syncProfile("B", true, 1),
		syncProfile("C", true, 1),
	)
	actual, err := engine.FetchActual(context.Background())
	if err != nil {
		t.Fatalf("FetchActual returned error: %v", err)
	}
	changeset, err := engine.Plan(desired, actual)
	if err != nil {
		t.Fatalf("Plan returned error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result, err := engine.Apply(ctx, changeset)
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	if len(client.calls) != 0 {
		t.Fatalf("expected no operations issued after cancellation, got %v", client.calls)
	}
	if result.Skipped != 3 {
		t.Fatalf("expected 3 skipped operations, got %d", result.Skipped)
	}
	if result.Succeeded() {
		t.Fatalf("a cancelled run must not report success")
	}
}

func TestVerifyReportsConvergenceFailure(t *testing.T) {
	t.Parallel()

	client := newFakeClient()
	client.seedCollection("sync_profiles", syncProfile("Standard", false, 1))
	engine := newTestEngine(client)

	// Desired differs from remote and nothing was applied: verification must
	// classify the residual diff as a convergence failure.
	desired := desiredProfiles(false, syncProfile("Standard", true, 1))
	err := engine.Verify(context.Background(), desired)
	if err == nil {
		t.Fatalf("expected convergence failure")
	}
	if !faults.IsCategory(err, faults.ConvergenceFailure) {
		t.Fatalf("expected ConvergenceFailure category, got %v", err)
	}
}

func TestReconcileCollectionKeyRuleCollision(t *testing.T) {
	t.Parallel()

	section, _ := schema.Lookup("sync_profiles")
	local := resource.Collection{
		"Standard": syncProfile("Standard", true, 1),
		"standard": syncProfile("standard", true, 1),
	}
	_, _, err := ReconcileCollection(section, local, resource.Collection{}, CollectionOptions{
		KeyRule: KeyRule{CaseFold: true},
	})
	if err == nil {
		t.Fatalf("expected collision error under case-folding key rule")
	}
	if !faults.IsCategory(err, faults.ValidationError) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if !errors.As(err, new(*faults.TypedError)) {
		t.Fatalf("expected typed error, got %T", err)
	}
}

func TestReconcileCollectionCreateOrderFollowsDocument(t *testing.T) {
	t.Parallel()

	section, _ := schema.Lookup("sync_profiles")
	local := resource.Collection{
		"Zeta":  syncProfile("Zeta", true, 1),
		"Alpha": syncProfile("Alpha", true, 1),
		"Mid":   syncProfile("Mid", true, 1),
	}
	changes, _, err := ReconcileCollection(section, local, resource.Collection{}, CollectionOptions{
		Order: []string{"Zeta", "Mid", "Alpha"},
	})
	if err != nil {
		t.Fatalf("ReconcileCollection returned error: %v", err)
	}
	got := make([]string, len(changes.Creates))
	for idx, op := range changes.Creates {
		got[idx] = op.Resource.Name
	}
	want := []string{"Zeta", "Mid", "Alpha"}
	for idx := range want {
		if got[idx] != want[idx] {
			t.Fatalf("expected create order %v, got %v", want, got)
		}
	}
}
