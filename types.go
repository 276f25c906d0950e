package main

type Var string

type Target struct {
	Run             []string `yaml:"run"`
	Deps            []string `yaml:"deps"`
	Onerror         string   `yaml:"onerror"`
	ContinueOnError bool     `yaml:"continue_on_error"`
}

// LinkTarget is a program or library built from compiled sources.
type LinkTarget struct {
	Name    string   `yaml:"name"`
	Sources []string `yaml:"sources"`
}

type Translation struct {
	Ts      string   `yaml:"ts"`
	Sources []string `yaml:"sources"`
}

type Qt4Options struct {
	Modules        []string      `yaml:"modules"`
	Debug          bool          `yaml:"debug"`
	CrossCompiling bool          `yaml:"crosscompiling"`
	Translations   []Translation `yaml:"translations"`
}

type Config struct {
	ContinueOnError bool              `yaml:"continue_on_error"`
	Includes        []string          `yaml:"include"`
	Tools           []string          `yaml:"tools"`
	Prologue        Target            `yaml:"prologue"`
	Vars            map[string]Var    `yaml:"vars"`
	Targets         map[string]Target `yaml:"targets"`
	Programs        []LinkTarget      `yaml:"programs"`
	Libraries       []LinkTarget      `yaml:"libraries"`
	SharedLibraries []LinkTarget      `yaml:"shared_libraries"`
	Qt4             Qt4Options        `yaml:"qt4"`
	Epilogue        Target            `yaml:"epilogue"`
}
