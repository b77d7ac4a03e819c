package inference

const diabetesYAML = `
name: diabetes
kind: logistic
description: Diabetes risk from four clinical measurements.
schema:
  fields:
    - {name: age, kind: numeric, min: 0, max: 120}
    - {name: bmi, kind: numeric, min: 0, max: 80}
    - {name: insulin, kind: numeric, min: 0, max: 900}
    - {name: glucose, kind: numeric, min: 0, max: 300}
output:
  name: outcome
  encoder:
    classes: ["No Diabetes", "Diabetes"]
params:
  coefficients: [0.01, 0.09, -0.001, 0.04]
  intercept: -9.0
`

const salaryYAML = `
kind: linear
schema:
  fields:
    - {name: years_experience, kind: numeric, min: 0, max: 50}
output:
  name: salary
params:
  coefficients: [9449.96]
  intercept: 25792.2
`

const penguinJSON = `{
  "name": "penguins",
  "kind": "decision_tree",
  "schema": {"fields": [
    {"name": "island", "kind": "categorical", "categories": ["Biscoe", "Dream", "Torgersen"]},
    {"name": "flipper_length_mm", "kind": "numeric"}
  ]},
  "output": {"name": "species", "encoder": {"classes": ["Adelie", "Chinstrap", "Gentoo"]}},
  "params": {"nodes": [
    {"feature": 1, "threshold": 206.5, "left": 1, "right": 4},
    {"feature": 0, "threshold": 0.5, "left": 2, "right": 3},
    {"left": -1, "right": -1, "value": 0},
    {"left": -1, "right": -1, "value": 1},
    {"left": -1, "right": -1, "value": 2}
  ]}
}`
