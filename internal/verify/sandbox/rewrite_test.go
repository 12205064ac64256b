package sandbox

import "testing"

func TestRewriteDatasetLoads(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			"literal path",
			`df = pd.read_csv('patients.csv')`,
			`df = pd.read_csv("data.csv")`,
		},
		{
			"double-quoted path",
			`df = pd.read_csv("/tmp/trial-data.csv")`,
			`df = pd.read_csv("data.csv")`,
		},
		{
			"in-memory buffer",
			`df = pd.read_csv(StringIO(raw))`,
			`df = pd.read_csv("data.csv")`,
		},
		{
			"already provisioned name",
			`df = pd.read_csv("data.csv")`,
			`df = pd.read_csv("data.csv")`,
		},
		{
			"unrelated code untouched",
			`print(df.describe())`,
			`print(df.describe())`,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := RewriteDatasetLoads(tc.in); got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}
