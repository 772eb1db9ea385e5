package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeConfig 生成使用临时 SQLite 的配置文件
func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	content := `
db:
  driver: sqlite
  sqlite_path: ` + filepath.Join(dir, "meal.db") + `
auth:
  jwt_secret: cli-test-secret-0123456789
scheduler:
  enabled: false
`
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("写入配置失败: %v", err)
	}
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestMigrateAndCreateUser(t *testing.T) {
	cfgPath := writeConfig(t)

	if _, err := run(t, "-c", cfgPath, "migrate"); err != nil {
		t.Fatalf("migrate 失败: %v", err)
	}

	out, err := run(t, "-c", cfgPath, "user", "create",
		"--username", "an.nguyen", "--full-name", "Nguyen Van An",
		"--email", "an@example.com", "--password", "secret123")
	if err != nil {
		t.Fatalf("user create 失败: %v", err)
	}
	if !strings.Contains(out, "an.nguyen") {
		t.Errorf("输出应包含用户名，实际: %s", out)
	}

	// 重复用户名
	_, err = run(t, "-c", cfgPath, "user", "create",
		"--username", "an.nguyen", "--full-name", "Other", "--password", "secret123")
	if err == nil || !strings.Contains(err.Error(), "已存在") {
		t.Errorf("期望用户名已存在错误，实际: %v", err)
	}
}

func TestCreateUser_Validation(t *testing.T) {
	cfgPath := writeConfig(t)

	cases := [][]string{
		{"--username", "x", "--full-name", "X", "--password", "short"},
		{"--username", "", "--full-name", "X", "--password", "secret123"},
		{"--username", "x", "--full-name", "X", "--password", "secret123", "--role", "chef"},
	}
	for _, flags := range cases {
		args := append([]string{"-c", cfgPath, "user", "create"}, flags...)
		if _, err := run(t, args...); err == nil {
			t.Errorf("%v 期望校验失败", flags)
		}
	}
}

func TestSlots(t *testing.T) {
	cfgPath := writeConfig(t)

	out, err := run(t, "-c", cfgPath, "slots", "--from", "2024-06-10", "--days", "2")
	if err != nil {
		t.Fatalf("slots 失败: %v", err)
	}
	for _, want := range []string{"2024-06-10-lunch", "2024-06-10-dinner", "2024-06-11-dinner", "2024-06-10 08:30"} {
		if !strings.Contains(out, want) {
			t.Errorf("输出缺少 %s:\n%s", want, out)
		}
	}
	if strings.Contains(out, "2024-06-12") {
		t.Errorf("不应包含第三天:\n%s", out)
	}

	if _, err := run(t, "-c", cfgPath, "slots", "--days", "40"); err == nil {
		t.Error("--days 40 期望报错")
	}
}

func TestReportExport(t *testing.T) {
	cfgPath := writeConfig(t)
	if _, err := run(t, "-c", cfgPath, "migrate"); err != nil {
		t.Fatalf("migrate 失败: %v", err)
	}
	if _, err := run(t, "-c", cfgPath, "user", "create",
		"--username", "binh", "--full-name", "Tran Binh", "--password", "secret123"); err != nil {
		t.Fatalf("user create 失败: %v", err)
	}

	outFile := filepath.Join(t.TempDir(), "report.xlsx")
	out, err := run(t, "-c", cfgPath, "report", "export", "--year", "2024", "--month", "2", "-o", outFile)
	if err != nil {
		t.Fatalf("report export 失败: %v", err)
	}
	// 闰年二月 58 餐 × 30000
	if !strings.Contains(out, "1740000") {
		t.Errorf("合计金额不正确: %s", out)
	}
	info, err := os.Stat(outFile)
	if err != nil || info.Size() == 0 {
		t.Errorf("未生成报表文件: %v", err)
	}
}
