package service

import "testing"

func TestRenderTemplate(t *testing.T) {
	tests := []struct {
		name     string
		template string
		data     map[string]string
		want     string
	}{
		{"fills known keys", "Hi @{username}, thanks for {likes} likes", map[string]string{"username": "zenleaf_12", "likes": "40"}, "Hi @zenleaf_12, thanks for 40 likes"},
		{"keeps unknown keys", "Hi {first_name} {last_name}", map[string]string{"first_name": "Asha"}, "Hi Asha {last_name}"},
		{"repeated key", "{x}-{x}", map[string]string{"x": "a"}, "a-a"},
		{"nil data", "{x}", nil, "{x}"},
		{"values are not re-expanded", "{a}", map[string]string{"a": "{b}", "b": "oops"}, "{b}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RenderTemplate(tt.template, tt.data); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
