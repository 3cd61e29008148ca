// Package dynamotest provides an in-memory DynamoDB used by store tests.
//
// It understands the expression shapes the stores in this module issue:
// conditions joined with AND (attribute_exists, attribute_not_exists, contains,
// IN, and the comparison operators), SET/ADD update expressions with
// arithmetic and if_not_exists, equality key conditions for Query, and
// TransactWriteItems with per-item cancellation reasons. It is intentionally
// not a general expression engine.
package dynamotest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type table struct {
	pk, sk string
	items  map[string]map[string]types.AttributeValue
}

// Fake is a goroutine-safe in-memory DynamoDB.
type Fake struct {
	mu     sync.Mutex
	tables map[string]*table

	// TransactHook runs before every TransactWriteItems call; a non-nil error
	// is returned to the caller without applying the transaction.
	TransactHook func(in *dyn.TransactWriteItemsInput) error

	TransactCalls int
}

// New returns an empty Fake.
func New() *Fake {
	return &Fake{tables: map[string]*table{}}
}

// CreateTable registers a table. sk may be empty for hash-only tables.
func (f *Fake) CreateTable(name, pk, sk string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tables[name] = &table{pk: pk, sk: sk, items: map[string]map[string]types.AttributeValue{}}
}

// Seed marshals v with attributevalue and stores it unconditionally.
func (f *Fake) Seed(tableName string, v any) error {
	item, err := attributevalue.MarshalMap(v)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	t, err := f.table(tableName)
	if err != nil {
		return err
	}
	k, err := t.keyOf(item)
	if err != nil {
		return err
	}
	t.items[k] = copyItem(item)
	return nil
}

// Item returns a copy of the stored item, or nil.
func (f *Fake) Item(tableName string, key ...string) map[string]types.AttributeValue {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tables[tableName]
	if !ok {
		return nil
	}
	item, ok := t.items[strings.Join(key, "\x00")]
	if !ok {
		return nil
	}
	return copyItem(item)
}

// Load unmarshals a stored item into out and reports whether it existed.
func (f *Fake) Load(tableName string, out any, key ...string) (bool, error) {
	item := f.Item(tableName, key...)
	if item == nil {
		return false, nil
	}
	return true, attributevalue.UnmarshalMap(item, out)
}

// Count returns the number of items in a table.
func (f *Fake) Count(tableName string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := f.tables[tableName]; ok {
		return len(t.items)
	}
	return 0
}

func (f *Fake) table(name string) (*table, error) {
	t, ok := f.tables[name]
	if !ok {
		return nil, &types.ResourceNotFoundException{Message: strPtr("table not found: " + name)}
	}
	return t, nil
}

func (t *table) keyOf(item map[string]types.AttributeValue) (string, error) {
	pk, ok := scalar(item[t.pk])
	if !ok {
		return "", fmt.Errorf("missing key attribute %s", t.pk)
	}
	if t.sk == "" {
		return pk, nil
	}
	sk, ok := scalar(item[t.sk])
	if !ok {
		return "", fmt.Errorf("missing key attribute %s", t.sk)
	}
	return pk + "\x00" + sk, nil
}

func (t *table) keyMap(item map[string]types.AttributeValue) map[string]types.AttributeValue {
	out := map[string]types.AttributeValue{t.pk: item[t.pk]}
	if t.sk != "" {
		out[t.sk] = item[t.sk]
	}
	return out
}

func (f *Fake) GetItem(ctx context.Context, in *dyn.GetItemInput, optFns ...func(*dyn.Options)) (*dyn.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, err := f.table(deref(in.TableName))
	if err != nil {
		return nil, err
	}
	k, err := t.keyOf(in.Key)
	if err != nil {
		return nil, err
	}
	item, ok := t.items[k]
	if !ok {
		return &dyn.GetItemOutput{}, nil
	}
	return &dyn.GetItemOutput{Item: copyItem(item)}, nil
}

func (f *Fake) PutItem(ctx context.Context, in *dyn.PutItemInput, optFns ...func(*dyn.Options)) (*dyn.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, err := f.table(deref(in.TableName))
	if err != nil {
		return nil, err
	}
	k, err := t.keyOf(in.Item)
	if err != nil {
		return nil, err
	}
	ok, err := evalCondition(in.ConditionExpression, t.items[k], in.ExpressionAttributeNames, in.ExpressionAttributeValues)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &types.ConditionalCheckFailedException{Message: strPtr("The conditional request failed")}
	}
	t.items[k] = copyItem(in.Item)
	return &dyn.PutItemOutput{}, nil
}

func (f *Fake) UpdateItem(ctx context.Context, in *dyn.UpdateItemInput, optFns ...func(*dyn.Options)) (*dyn.UpdateItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, err := f.table(deref(in.TableName))
	if err != nil {
		return nil, err
	}
	k, err := t.keyOf(in.Key)
	if err != nil {
		return nil, err
	}
	current := t.items[k]
	ok, err := evalCondition(in.ConditionExpression, current, in.ExpressionAttributeNames, in.ExpressionAttributeValues)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &types.ConditionalCheckFailedException{Message: strPtr("The conditional request failed")}
	}
	next, err := applyUpdate(deref(in.UpdateExpression), current, in.Key, in.ExpressionAttributeNames, in.ExpressionAttributeValues)
	if err != nil {
		return nil, err
	}
	t.items[k] = next
	return &dyn.UpdateItemOutput{Attributes: copyItem(next)}, nil
}

func (f *Fake) DeleteItem(ctx context.Context, in *dyn.DeleteItemInput, optFns ...func(*dyn.Options)) (*dyn.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, err := f.table(deref(in.TableName))
	if err != nil {
		return nil, err
	}
	k, err := t.keyOf(in.Key)
	if err != nil {
		return nil, err
	}
	ok, err := evalCondition(in.ConditionExpression, t.items[k], in.ExpressionAttributeNames, in.ExpressionAttributeValues)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &types.ConditionalCheckFailedException{Message: strPtr("The conditional request failed")}
	}
	delete(t.items, k)
	return &dyn.DeleteItemOutput{}, nil
}

func (f *Fake) Query(ctx context.Context, in *dyn.QueryInput, optFns ...func(*dyn.Options)) (*dyn.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, err := f.table(deref(in.TableName))
	if err != nil {
		return nil, err
	}
	attr, want, err := parseKeyCondition(deref(in.KeyConditionExpression), in.ExpressionAttributeNames, in.ExpressionAttributeValues)
	if err != nil {
		return nil, err
	}
	if attr != t.pk {
		return nil, fmt.Errorf("query: key condition must target %s, got %s", t.pk, attr)
	}
	keys := t.sortedKeys()
	matched := keys[:0:0]
	for _, k := range keys {
		if v, _ := scalar(t.items[k][t.pk]); v == want {
			matched = append(matched, k)
		}
	}
	if in.ScanIndexForward != nil && !*in.ScanIndexForward {
		for i, j := 0, len(matched)-1; i < j; i, j = i+1, j-1 {
			matched[i], matched[j] = matched[j], matched[i]
		}
	}
	items, last, err := t.page(matched, in.ExclusiveStartKey, in.Limit, in.FilterExpression, in.ExpressionAttributeNames, in.ExpressionAttributeValues)
	if err != nil {
		return nil, err
	}
	return &dyn.QueryOutput{Items: items, Count: int32(len(items)), LastEvaluatedKey: last}, nil
}

func (f *Fake) Scan(ctx context.Context, in *dyn.ScanInput, optFns ...func(*dyn.Options)) (*dyn.ScanOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, err := f.table(deref(in.TableName))
	if err != nil {
		return nil, err
	}
	items, last, err := t.page(t.sortedKeys(), in.ExclusiveStartKey, in.Limit, in.FilterExpression, in.ExpressionAttributeNames, in.ExpressionAttributeValues)
	if err != nil {
		return nil, err
	}
	return &dyn.ScanOutput{Items: items, Count: int32(len(items)), LastEvaluatedKey: last}, nil
}

// page walks keys in order, starting after start, evaluating at most limit
// items before the filter is applied, as DynamoDB does.
func (t *table) page(keys []string, start map[string]types.AttributeValue, limit *int32, filter *string, names map[string]string, values map[string]types.AttributeValue) ([]map[string]types.AttributeValue, map[string]types.AttributeValue, error) {
	idx := 0
	if len(start) > 0 {
		sk, err := t.keyOf(start)
		if err != nil {
			return nil, nil, err
		}
		idx = len(keys)
		for i, k := range keys {
			if k == sk {
				idx = i + 1
				break
			}
		}
	}

	var out []map[string]types.AttributeValue
	evaluated := 0
	for ; idx < len(keys); idx++ {
		if limit != nil && evaluated == int(*limit) {
			return out, t.keyMap(t.items[keys[idx-1]]), nil
		}
		item := t.items[keys[idx]]
		evaluated++
		ok, err := evalCondition(filter, item, names, values)
		if err != nil {
			return nil, nil, err
		}
		if ok {
			out = append(out, copyItem(item))
		}
	}
	return out, nil, nil
}

func (t *table) sortedKeys() []string {
	keys := make([]string, 0, len(t.items))
	for k := range t.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (f *Fake) TransactWriteItems(ctx context.Context, in *dyn.TransactWriteItemsInput, optFns ...func(*dyn.Options)) (*dyn.TransactWriteItemsOutput, error) {
	if f.TransactHook != nil {
		if err := f.TransactHook(in); err != nil {
			return nil, err
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.TransactCalls++

	type write struct {
		t    *table
		key  string
		next map[string]types.AttributeValue
		del  bool
	}
	writes := make([]write, 0, len(in.TransactItems))
	reasons := make([]types.CancellationReason, len(in.TransactItems))
	canceled := false

	for i, it := range in.TransactItems {
		reasons[i] = types.CancellationReason{Code: strPtr("None")}
		var (
			tableName, cond string
			names           map[string]string
			values          map[string]types.AttributeValue
			keyItem         map[string]types.AttributeValue
		)
		switch {
		case it.Put != nil:
			tableName, cond, names, values, keyItem = deref(it.Put.TableName), deref(it.Put.ConditionExpression), it.Put.ExpressionAttributeNames, it.Put.ExpressionAttributeValues, it.Put.Item
		case it.Update != nil:
			tableName, cond, names, values, keyItem = deref(it.Update.TableName), deref(it.Update.ConditionExpression), it.Update.ExpressionAttributeNames, it.Update.ExpressionAttributeValues, it.Update.Key
		case it.Delete != nil:
			tableName, cond, names, values, keyItem = deref(it.Delete.TableName), deref(it.Delete.ConditionExpression), it.Delete.ExpressionAttributeNames, it.Delete.ExpressionAttributeValues, it.Delete.Key
		case it.ConditionCheck != nil:
			tableName, cond, names, values, keyItem = deref(it.ConditionCheck.TableName), deref(it.ConditionCheck.ConditionExpression), it.ConditionCheck.ExpressionAttributeNames, it.ConditionCheck.ExpressionAttributeValues, it.ConditionCheck.Key
		default:
			return nil, errors.New("transact item has no operation")
		}

		t, err := f.table(tableName)
		if err != nil {
			return nil, err
		}
		k, err := t.keyOf(keyItem)
		if err != nil {
			return nil, err
		}
		current := t.items[k]
		var condPtr *string
		if cond != "" {
			condPtr = &cond
		}
		ok, err := evalCondition(condPtr, current, names, values)
		if err != nil {
			return nil, err
		}
		if !ok {
			reasons[i] = types.CancellationReason{Code: strPtr("ConditionalCheckFailed"), Message: strPtr("The conditional request failed")}
			canceled = true
			continue
		}

		switch {
		case it.Put != nil:
			writes = append(writes, write{t: t, key: k, next: copyItem(it.Put.Item)})
		case it.Update != nil:
			next, err := applyUpdate(deref(it.Update.UpdateExpression), current, it.Update.Key, names, values)
			if err != nil {
				return nil, err
			}
			writes = append(writes, write{t: t, key: k, next: next})
		case it.Delete != nil:
			writes = append(writes, write{t: t, key: k, del: true})
		}
	}

	if canceled {
		codes := make([]string, len(reasons))
		for i, r := range reasons {
			codes[i] = deref(r.Code)
		}
		return nil, &types.TransactionCanceledException{
			Message:             strPtr("Transaction cancelled, please refer cancellation reasons for specific reasons [" + strings.Join(codes, ", ") + "]"),
			CancellationReasons: reasons,
		}
	}

	for _, w := range writes {
		if w.del {
			delete(w.t.items, w.key)
			continue
		}
		w.t.items[w.key] = w.next
	}
	return &dyn.TransactWriteItemsOutput{}, nil
}

// --- expressions ---

func evalCondition(expr *string, item map[string]types.AttributeValue, names map[string]string, values map[string]types.AttributeValue) (bool, error) {
	if expr == nil || strings.TrimSpace(*expr) == "" {
		return true, nil
	}
	for _, clause := range strings.Split(*expr, " AND ") {
		ok, err := evalClause(strings.TrimSpace(clause), item, names, values)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func evalClause(clause string, item map[string]types.AttributeValue, names map[string]string, values map[string]types.AttributeValue) (bool, error) {
	switch {
	case strings.HasPrefix(clause, "attribute_not_exists("):
		attr := resolveName(between(clause, "(", ")"), names)
		_, exists := item[attr]
		return !exists, nil
	case strings.HasPrefix(clause, "attribute_exists("):
		attr := resolveName(between(clause, "(", ")"), names)
		_, exists := item[attr]
		return exists, nil
	case strings.HasPrefix(clause, "contains("):
		args := strings.Split(between(clause, "(", ")"), ",")
		if len(args) != 2 {
			return false, fmt.Errorf("bad contains clause %q", clause)
		}
		got, _ := scalar(item[resolveName(strings.TrimSpace(args[0]), names)])
		want, _ := scalar(values[strings.TrimSpace(args[1])])
		return strings.Contains(got, want), nil
	case strings.Contains(clause, " IN ("):
		parts := strings.SplitN(clause, " IN (", 2)
		attr := resolveName(strings.TrimSpace(parts[0]), names)
		cur, exists := item[attr]
		if !exists {
			return false, nil
		}
		for _, ph := range strings.Split(strings.TrimSuffix(parts[1], ")"), ",") {
			if c, ok := compare(cur, values[strings.TrimSpace(ph)]); ok && c == 0 {
				return true, nil
			}
		}
		return false, nil
	}

	for _, op := range []string{"<>", "<=", ">=", "=", "<", ">"} {
		if i := strings.Index(clause, " "+op+" "); i >= 0 {
			attr := resolveName(strings.TrimSpace(clause[:i]), names)
			rhs := strings.TrimSpace(clause[i+len(op)+2:])
			cur, exists := item[attr]
			want, ok := values[rhs]
			if !ok {
				return false, fmt.Errorf("missing expression value %s", rhs)
			}
			if !exists {
				return op == "<>", nil
			}
			c, comparable := compare(cur, want)
			if !comparable {
				return op == "<>", nil
			}
			switch op {
			case "=":
				return c == 0, nil
			case "<>":
				return c != 0, nil
			case "<":
				return c < 0, nil
			case "<=":
				return c <= 0, nil
			case ">":
				return c > 0, nil
			case ">=":
				return c >= 0, nil
			}
		}
	}
	return false, fmt.Errorf("unsupported condition clause %q", clause)
}

func parseKeyCondition(expr string, names map[string]string, values map[string]types.AttributeValue) (string, string, error) {
	parts := strings.SplitN(expr, " = ", 2)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("unsupported key condition %q", expr)
	}
	v, ok := scalar(values[strings.TrimSpace(parts[1])])
	if !ok {
		return "", "", fmt.Errorf("missing key condition value in %q", expr)
	}
	return resolveName(strings.TrimSpace(parts[0]), names), v, nil
}

func applyUpdate(expr string, current, key map[string]types.AttributeValue, names map[string]string, values map[string]types.AttributeValue) (map[string]types.AttributeValue, error) {
	next := copyItem(current)
	if next == nil {
		next = copyItem(key)
	}

	setPart, addPart := expr, ""
	if i := strings.Index(expr, " ADD "); i >= 0 {
		setPart, addPart = expr[:i], expr[i+len(" ADD "):]
	} else if strings.HasPrefix(expr, "ADD ") {
		setPart, addPart = "", strings.TrimPrefix(expr, "ADD ")
	}

	if setPart = strings.TrimSpace(setPart); setPart != "" {
		if !strings.HasPrefix(setPart, "SET ") {
			return nil, fmt.Errorf("unsupported update expression %q", expr)
		}
		for _, assign := range splitTopLevel(strings.TrimPrefix(setPart, "SET ")) {
			lr := strings.SplitN(assign, "=", 2)
			if len(lr) != 2 {
				return nil, fmt.Errorf("bad assignment %q", assign)
			}
			attr := resolveName(strings.TrimSpace(lr[0]), names)
			v, err := evalOperand(strings.TrimSpace(lr[1]), current, names, values)
			if err != nil {
				return nil, err
			}
			next[attr] = v
		}
	}

	if addPart = strings.TrimSpace(addPart); addPart != "" {
		for _, pair := range splitTopLevel(addPart) {
			fields := strings.Fields(pair)
			if len(fields) != 2 {
				return nil, fmt.Errorf("bad ADD clause %q", pair)
			}
			attr := resolveName(fields[0], names)
			inc, ok := values[fields[1]]
			if !ok {
				return nil, fmt.Errorf("missing expression value %s", fields[1])
			}
			base, exists := current[attr]
			if !exists {
				base = &types.AttributeValueMemberN{Value: "0"}
			}
			sum, err := arith(base, inc, "+")
			if err != nil {
				return nil, err
			}
			next[attr] = sum
		}
	}
	return next, nil
}

func evalOperand(rhs string, current map[string]types.AttributeValue, names map[string]string, values map[string]types.AttributeValue) (types.AttributeValue, error) {
	for _, op := range []string{" + ", " - "} {
		if i := strings.LastIndex(rhs, op); i >= 0 {
			left, err := evalOperand(strings.TrimSpace(rhs[:i]), current, names, values)
			if err != nil {
				return nil, err
			}
			right, err := evalOperand(strings.TrimSpace(rhs[i+len(op):]), current, names, values)
			if err != nil {
				return nil, err
			}
			return arith(left, right, strings.TrimSpace(op))
		}
	}
	if strings.HasPrefix(rhs, "if_not_exists(") {
		args := strings.Split(between(rhs, "(", ")"), ",")
		if len(args) != 2 {
			return nil, fmt.Errorf("bad if_not_exists %q", rhs)
		}
		if v, ok := current[resolveName(strings.TrimSpace(args[0]), names)]; ok {
			return v, nil
		}
		return evalOperand(strings.TrimSpace(args[1]), current, names, values)
	}
	if strings.HasPrefix(rhs, ":") {
		v, ok := values[rhs]
		if !ok {
			return nil, fmt.Errorf("missing expression value %s", rhs)
		}
		return v, nil
	}
	v, ok := current[resolveName(rhs, names)]
	if !ok {
		return nil, fmt.Errorf("the provided expression refers to an attribute that does not exist in the item: %s", rhs)
	}
	return v, nil
}

func arith(a, b types.AttributeValue, op string) (types.AttributeValue, error) {
	an, aok := a.(*types.AttributeValueMemberN)
	bn, bok := b.(*types.AttributeValueMemberN)
	if !aok || !bok {
		return nil, errors.New("arithmetic on non-number attribute")
	}
	x, err := strconv.ParseInt(an.Value, 10, 64)
	if err != nil {
		return nil, err
	}
	y, err := strconv.ParseInt(bn.Value, 10, 64)
	if err != nil {
		return nil, err
	}
	if op == "-" {
		return &types.AttributeValueMemberN{Value: strconv.FormatInt(x-y, 10)}, nil
	}
	return &types.AttributeValueMemberN{Value: strconv.FormatInt(x+y, 10)}, nil
}

func compare(a, b types.AttributeValue) (int, bool) {
	switch av := a.(type) {
	case *types.AttributeValueMemberS:
		bv, ok := b.(*types.AttributeValueMemberS)
		if !ok {
			return 0, false
		}
		return strings.Compare(av.Value, bv.Value), true
	case *types.AttributeValueMemberN:
		bv, ok := b.(*types.AttributeValueMemberN)
		if !ok {
			return 0, false
		}
		x, err1 := strconv.ParseFloat(av.Value, 64)
		y, err2 := strconv.ParseFloat(bv.Value, 64)
		if err1 != nil || err2 != nil {
			return 0, false
		}
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		}
		return 0, true
	case *types.AttributeValueMemberBOOL:
		bv, ok := b.(*types.AttributeValueMemberBOOL)
		if !ok {
			return 0, false
		}
		if av.Value == bv.Value {
			return 0, true
		}
		return 1, true
	}
	return 0, false
}

func splitTopLevel(s string) []string {
	var out []string
	depth, start := 0, 0
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	if rest := strings.TrimSpace(s[start:]); rest != "" {
		out = append(out, rest)
	}
	return out
}

func resolveName(tok string, names map[string]string) string {
	if strings.HasPrefix(tok, "#") {
		if n, ok := names[tok]; ok {
			return n
		}
	}
	return tok
}

func between(s, open, closing string) string {
	i := strings.Index(s, open)
	j := strings.LastIndex(s, closing)
	if i < 0 || j <= i {
		return ""
	}
	return strings.TrimSpace(s[i+1 : j])
}

func scalar(av types.AttributeValue) (string, bool) {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return v.Value, true
	case *types.AttributeValueMemberN:
		return v.Value, true
	}
	return "", false
}

func copyItem(item map[string]types.AttributeValue) map[string]types.AttributeValue {
	if item == nil {
		return nil
	}
	out := make(map[string]types.AttributeValue, len(item))
	for k, v := range item {
		out[k] = v
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func strPtr(s string) *string { return &s }
