package prowlarr

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
)

// Tag references on the wire are numeric ids; the desired document speaks in
// labels. The client keeps a label->id cache, refreshed whenever the tags
// section is fetched and kept current across creates and deletes so sections
// applied after tags resolve labels created in the same run.

// tagLabels translates a wire tag id list into sorted labels.
func (c *Client) tagLabels(ctx context.Context, raw any) ([]string, error) {
	ids, _ := raw.([]any)
	if len(ids) == 0 {
		return []string{}, nil
	}
	byID, err := c.tagsByID(ctx)
	if err != nil {
		return nil, err
	}

	labels := make([]string, 0, len(ids))
	for _, rawID := range ids {
		id := numericID(rawID)
		label, ok := byID[id]
		if !ok {
			return nil, remoteRejected(fmt.Sprintf("remote references unknown tag id %d", id), nil)
		}
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels, nil
}

// tagIDsFor translates a desired label list into wire ids. An unknown label
// triggers one cache refresh before failing, covering tags created outside
// the current process.
func (c *Client) tagIDsFor(ctx context.Context, value any) ([]int64, error) {
	labels, err := labelList(value)
	if err != nil {
		return nil, err
	}
	if len(labels) == 0 {
		return []int64{}, nil
	}

	ids := make([]int64, 0, len(labels))
	refreshed := false
	for _, label := range labels {
		id, ok := c.lookupTag(label)
		if !ok && !refreshed {
			if err := c.refreshTags(ctx); err != nil {
				return nil, err
			}
			refreshed = true
			id, ok = c.lookupTag(label)
		}
		if !ok {
			return nil, validationError(fmt.Sprintf("tag %q does not exist on the remote instance", label), nil)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func labelList(value any) ([]string, error) {
	switch typed := value.(type) {
	case nil:
		return nil, nil
	case []string:
		return typed, nil
	case []any:
		labels := make([]string, 0, len(typed))
		for _, item := range typed {
			label, ok := item.(string)
			if !ok {
				return nil, validationError(fmt.Sprintf("tag reference %v is not a string", item), nil)
			}
			labels = append(labels, label)
		}
		return labels, nil
	default:
		return nil, validationError(fmt.Sprintf("tags must be a list of labels, got %T", value), nil)
	}
}

func (c *Client) tagsByID(ctx context.Context) (map[int64]string, error) {
	c.tagMu.Lock()
	cached := len(c.tagIDs) > 0
	c.tagMu.Unlock()
	if !cached {
		if err := c.refreshTags(ctx); err != nil {
			return nil, err
		}
	}

	c.tagMu.Lock()
	defer c.tagMu.Unlock()
	byID := make(map[int64]string, len(c.tagIDs))
	for label, id := range c.tagIDs {
		byID[id] = label
	}
	return byID, nil
}

func (c *Client) refreshTags(ctx context.Context) error {
	var wires []map[string]any
	if err := c.getJSON(ctx, "/api/v1/tag", &wires); err != nil {
		return err
	}
	c.cacheTagsFromWire(wires)
	return nil
}

func (c *Client) cacheTagsFromWire(wires []map[string]any) {
	next := make(map[string]int64, len(wires))
	for _, wire := range wires {
		label, _ := wire["label"].(string)
		if label == "" {
			continue
		}
		next[label] = wireID(wire)
	}
	c.tagMu.Lock()
	c.tagIDs = next
	c.tagMu.Unlock()
}

func (c *Client) lookupTag(label string) (int64, bool) {
	c.tagMu.Lock()
	defer c.tagMu.Unlock()
	id, ok := c.tagIDs[label]
	return id, ok
}

func (c *Client) cacheTag(label string, id int64) {
	c.tagMu.Lock()
	defer c.tagMu.Unlock()
	if c.tagIDs == nil {
		c.tagIDs = map[string]int64{}
	}
	c.tagIDs[label] = id
}

func (c *Client) evictTag(label string) {
	c.tagMu.Lock()
	defer c.tagMu.Unlock()
	delete(c.tagIDs, label)
}

func numericID(value any) int64 {
	switch typed := value.(type) {
	case json.Number:
		id, err := typed.Int64()
		if err != nil {
			return 0
		}
		return id
	case int64:
		return typed
	case int:
		return int64(typed)
	case float64:
		return int64(typed)
	default:
		return 0
	}
}
