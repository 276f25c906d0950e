/*
Package main implements Aura, a build tool for C and C++ projects that use Qt 4.

Aura reads aura.yaml, registers a build step for every file it has to produce,
and runs those steps in dependency order. Shell targets from earlier versions
of Aura keep working next to the new program and library sections.

# Core Features

Automoc:
Programs and libraries built with the qt4 tool get moc steps without listing
them. For every C++ source the header with the same stem is scanned for
Q_OBJECT; when found, moc runs on the header and the generated moc_<stem>.cc
is compiled and linked. A Q_OBJECT in the source itself produces <stem>.moc,
which the source is expected to #include. Set QT4_AUTOSCAN_STRATEGY to 1 to
follow #include "moc_<stem>.cpp" directives instead (qtsolutions style).

Qt 4 Builders:
The qt4 tool locates moc, uic, rcc, lupdate and lrelease below QTDIR and adds
builders for .ui forms, .qrc resource collections and .ts translations.
Resource collections are scanned so that a changed image rebuilds its
qrc_<name>.cc.

Modules:
The qt4 section of aura.yaml enables Qt modules. Their flags come from
pkg-config on Linux and macOS, and from the Qt library naming scheme on
Windows and when cross compiling.

Variable Substitution:
Commands use $VAR or ${VAR}. Built-in variables are $cwd, $@ (target name),
$TIMESTAMP, and for build steps $TARGET, $TARGETS, $SOURCE and $SOURCES.
Variables are looked up in vars, then in tool defaults, then in the process
environment and a .env file next to aura.yaml.

# CLI Commands

  - build: Build everything, or the named programs, libraries and targets
  - plan: Show the registered build steps in table, JSON, or YAML format
  - list: Display available targets in table, JSON, or YAML format
  - validate: Validate aura.yaml, apply its tools and plan it
  - clean: Remove generated files
  - modules: List the Qt 4 modules that can be enabled

# Configuration

	tools: [qt4]

	vars:
	  QTDIR: /usr/lib/qt4
	  QT4_GOBBLECOMMENTS: "1"

	qt4:
	  modules: [QtCore, QtGui]
	  translations:
	    - ts: i18n/app_de.ts
	      sources: ["src/*.cpp"]

	programs:
	  - name: app
	    sources: ["src/*.cpp", "forms/*.ui", "app.qrc"]

	targets:
	  docs:
	    run:
	      - "doxygen"

# Usage Examples

Build everything with four jobs:

	aura build -p 4

Build one program and run a shell target:

	aura build -t app,docs

Show what would be built:

	aura plan --format yaml
*/
package main
