package xmlrpc

import (
	"encoding/xml"
	"reflect"
	"testing"
)

type xmlTestCase struct {
	in   interface{}
	want string
}

func xmlRunMarshalTests(t *testing.T, cases []xmlTestCase) {
	for i, c := range cases {
		out, err := xml.Marshal(c.in)
		if err != nil {
			t.Errorf("unexpected error in test case %d: %v", i+1, err)
			continue
		}
		if string(out) != c.want {
			t.Errorf("unexpected xml in test case %d: want: %s got: %s", i+1, c.want, out)
		}
	}
}

func TestMarshalXMLValue(t *testing.T) {
	cases := []xmlTestCase{
		{Value{I4: "123"}, "<value><i4>123</i4></value>"},
		{Value{Int: "0"}, "<value><int>0</int></value>"},
		{Value{Boolean: "1"}, "<value><boolean>1</boolean></value>"},
		{Value{ElemString: "abc"}, "<value><string>abc</string></value>"},
		{Value{FlatString: "def"}, "<value>def</value>"},
		{Value{Double: "123.456"}, "<value><double>123.456</double></value>"},
		{
			Value{DateTime: "2018-01-01T00:00:00"},
			"<value><dateTime.iso8601>2018-01-01T00:00:00</dateTime.iso8601></value>",
		},
		{Value{Base64: "SGVsbG8="}, "<value><base64>SGVsbG8=</base64></value>"},
		{
			Value{Struct: &Struct{Members: []*Member{}}},
			"<value><struct></struct></value>",
		},
		{
			Value{Struct: &Struct{Members: []*Member{
				{Name: "Field1", Value: &Value{Int: "123"}},
				{Name: "Field2", Value: &Value{ElemString: "abc"}},
			}}},
			"<value><struct><member><name>Field1</name><value><int>123</int></value></member>" +
				"<member><name>Field2</name><value><string>abc</string></value></member></struct></value>",
		},
		{
			Value{Array: &Array{}},
			"<value><array><data></data></array></value>",
		},
		{
			Value{Array: &Array{Data: []*Value{{FlatString: "abc"}, {I4: "4"}}}},
			"<value><array><data><value>abc</value><value><i4>4</i4></value></data></array></value>",
		},
	}
	xmlRunMarshalTests(t, cases)
}

func TestMarshalMethodCall(t *testing.T) {
	cases := []xmlTestCase{
		{
			MethodCall{MethodName: "noParameters", Params: &Params{}},
			"<methodCall><methodName>noParameters</methodName><params></params></methodCall>",
		},
		{
			MethodCall{
				MethodName: "setAnswer",
				Params:     &Params{Param: []*Param{{Value: &Value{I4: "42"}}}},
			},
			"<methodCall><methodName>setAnswer</methodName><params><param><value><i4>42</i4></value></param></params></methodCall>",
		},
		{
			MethodResponse{
				Fault: &Value{Struct: &Struct{Members: []*Member{
					{Name: "faultCode", Value: &Value{Int: "4"}},
					{Name: "faultString", Value: &Value{ElemString: "Too many parameters."}},
				}}},
			},
			"<methodResponse><fault><value><struct><member><name>faultCode</name><value><int>4</int></value></member>" +
				"<member><name>faultString</name><value><string>Too many parameters.</string></value></member></struct></value></fault></methodResponse>",
		},
	}
	xmlRunMarshalTests(t, cases)
}

func TestQueryInt(t *testing.T) {
	cases := []struct {
		in        Value
		wanted    int
		errWanted bool
	}{
		{Value{}, 0, true},
		{Value{I4: ""}, 0, true},
		{Value{I4: "123"}, 123, false},
		{Value{Int: "456"}, 456, false},
	}
	for _, c := range cases {
		e := Q(&c.in)
		i := e.Int()
		err := e.Err()
		if i != c.wanted || (err != nil) != c.errWanted {
			t.Fail()
		}
	}
}

func TestQueryBoolean(t *testing.T) {
	cases := []struct {
		in        Value
		wanted    bool
		errWanted bool
	}{
		{Value{}, false, true},
		{Value{Boolean: "2"}, false, true},
		{Value{Boolean: "0"}, false, false},
		{Value{Boolean: "1"}, true, false},
	}
	for _, c := range cases {
		u := Q(&c.in)
		b := u.Bool()
		err := u.Err()
		if b != c.wanted || (err != nil) != c.errWanted {
			t.Fail()
		}
	}
}

func TestQueryString(t *testing.T) {
	cases := []struct {
		in     Value
		wanted string
	}{
		{Value{ElemString: "abc"}, "abc"},
		{Value{FlatString: " def"}, " def"},
		{Value{ElemString: "abc", FlatString: "def"}, "abc"},
	}
	for _, c := range cases {
		u := Q(&c.in)
		s := u.String()
		if s != c.wanted {
			t.Fail()
		}
	}
}

func TestQueryKey(t *testing.T) {
	e := Q(&Value{Struct: &Struct{}})
	e.Key("unknown")
	if e.Err() == nil {
		t.Fail()
	}

	e = Q(&Value{Struct: &Struct{Members: []*Member{
		{Name: "name1", Value: &Value{I4: "123"}},
		{Name: "name2", Value: &Value{ElemString: "abc"}},
	}}})

	i := e.Key("name1").Int()
	if e.Err() != nil || i != 123 {
		t.Fail()
	}

	s := e.Key("name2").String()
	if e.Err() != nil || s != "abc" {
		t.Fail()
	}
}

func TestQueryTryKey(t *testing.T) {
	e := Q(&Value{Struct: &Struct{Members: []*Member{
		{Name: "name1", Value: &Value{I4: "123"}},
	}}})
	i := e.TryKey("name1").Int()
	if i != 123 || e.Err() != nil {
		t.Fail()
	}
	i = e.TryKey("unknown").Int()
	if i != 0 || e.Err() != nil {
		t.Fail()
	}
}

func TestQueryArray(t *testing.T) {
	e := Q(&Value{Array: &Array{Data: []*Value{{FlatString: "abc"}, {I4: "4"}}}})
	if len(e.Slice()) != 2 {
		t.Fail()
	}
	s := e.Slice()[0].String()
	i := e.Slice()[1].Int()
	if s != "abc" || i != 4 || e.Err() != nil {
		t.Fail()
	}
}

func TestQueryStrings(t *testing.T) {
	e := Q(&Value{Array: &Array{Data: []*Value{{FlatString: "abc"}, {ElemString: "def"}}}})
	s := e.Strings()
	if e.Err() != nil {
		t.Error(e.Err())
	}
	if !reflect.DeepEqual(s, []string{"abc", "def"}) {
		t.Error("invalid result: ", s)
	}
}

func TestQueryAny(t *testing.T) {
	cases := []struct {
		v       *Value
		want    interface{}
		wantErr bool
	}{
		{&Value{I4: "123"}, int(123), false},
		{&Value{Boolean: "1"}, true, false},
		{&Value{Double: "123.456"}, 123.456, false},
		{&Value{FlatString: "abc"}, "abc", false},
		{&Value{Double: "a"}, 0, true},
		{nil, nil, false},
	}
	for _, c := range cases {
		e := Q(c.v)
		v := e.Any()
		if (e.Err() != nil) != c.wantErr {
			t.Errorf("unexpected error state: %v", e.Err())
		}
		if e.Err() == nil && !reflect.DeepEqual(v, c.want) {
			t.Errorf("unexpected value: %v, expected: %v", v, c.want)
		}
	}
}

func TestNewValue(t *testing.T) {
	cases := []struct {
		want *Value
		in   interface{}
	}{
		{&Value{I4: "123"}, int(123)},
		{&Value{Boolean: "1"}, true},
		{&Value{Boolean: "0"}, false},
		{&Value{Double: "123.456"}, 123.456},
		{&Value{FlatString: "abc"}, "abc"},
		{
			&Value{Array: &Array{Data: []*Value{{FlatString: "abc"}}}},
			[]string{"abc"},
		},
		{
			&Value{Struct: &Struct{Members: []*Member{{Name: "abc", Value: &Value{I4: "123"}}}}},
			map[string]interface{}{"abc": 123},
		},
		{&Value{I4: "7"}, EnumValue{Ordinal: 7, Label: "OPEN"}},
	}
	for _, c := range cases {
		v, err := NewValue(c.in)
		if err != nil {
			t.Errorf("unexpected error: %v", err)
			continue
		}
		if !reflect.DeepEqual(v, c.want) {
			t.Errorf("unexpected value: %+v, expected: %+v", v, c.want)
		}
	}
}

func TestNewMapRecursiveCleanup(t *testing.T) {
	v, err := NewMap(map[string]interface{}{
		"outer": map[string]interface{}{
			"inner": EnumValue{Ordinal: 2, Label: "AUTO"},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	q := Q(v).Key("outer").Key("inner")
	if q.Err() != nil {
		t.Fatal(q.Err())
	}
	if q.Int() != 2 {
		t.Fatalf("expected scalarized enum ordinal 2, got %d", q.Int())
	}
}
